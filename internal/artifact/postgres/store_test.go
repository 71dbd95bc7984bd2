package postgres

import "testing"

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"gbas_site_a_app_10p0", "gbas_site_a_app_10p0"},
		{"RockFlx_Gbas", "rockflx_gbas"},
		{"cationflx_sum", "cationflx_sum"},
		{"run.2024-01", "run_2024_01"},
		{"carbAlk_flxs", "carbalk_flxs"},
	}
	for _, tc := range cases {
		if got := sanitize(tc.in); got != tc.want {
			t.Fatalf("sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
