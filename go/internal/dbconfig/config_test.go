package dbconfig

import "testing"

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "parts",
			cfg:  Config{Host: "db", Port: 5432, User: "postgres", Password: "secret", Database: "courtside", SSLMode: "disable"},
			want: "postgres://postgres:secret@db:5432/courtside?sslmode=disable",
		},
		{
			name: "escaped password",
			cfg:  Config{Host: "db", Port: 5433, User: "scorer", Password: "p@ss/word", Database: "courtside", SSLMode: "require"},
			want: "postgres://scorer:p%40ss%2Fword@db:5433/courtside?sslmode=require",
		},
		{
			name: "url wins",
			cfg:  Config{URL: "postgres://u:p@remote:6543/other", Host: "db", Port: 5432},
			want: "postgres://u:p@remote:6543/other",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	if Enabled() {
		t.Fatal("Enabled() with no database settings")
	}

	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("DB_MAX_CONNS", "4")
	cfg := NewConfigFromEnv()
	if !Enabled() || cfg.Host != "pg" || cfg.Port != 5432 || cfg.MaxConns != 4 {
		t.Fatalf("config = %+v", cfg)
	}
	if got := cfg.Target(); got != "pg:5432/courtside" {
		t.Fatalf("Target() = %q", got)
	}
}
