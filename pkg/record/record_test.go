package record

import "testing"

func TestPage_Last(t *testing.T) {
	yes, no := true, false
	full := []RawRecord{{ID: "1"}, {ID: "2"}}

	tests := []struct {
		name string
		page Page
		want bool
	}{
		{name: "empty", page: Page{}, want: true},
		{name: "short", page: Page{Records: full[:1], More: &yes}, want: true},
		{name: "full with more", page: Page{Records: full, More: &yes}, want: false},
		{name: "full without more", page: Page{Records: full, More: &no}, want: true},
		{name: "full without flag", page: Page{Records: full}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.Last(2); got != tt.want {
				t.Errorf("Last(2) = %v, want %v", got, tt.want)
			}
		})
	}
}
