package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{`"postgres://u:p@h:5432/x"`, "postgres://u:p@h:5432/x"},
		{"host=db  user=u   dbname=x", "host=db user=u dbname=x sslmode=disable"},
		{"host=db user=u dbname=x sslmode=require", "host=db user=u dbname=x sslmode=require"},
		{"paintms.db", "paintms.db"},
	}
	for _, c := range cases {
		if got := NormalizeDSN(c.in); got != c.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToURLDSN(t *testing.T) {
	got := ToURLDSN("host=db port=5433 user=paint password=s3cret dbname=paintms sslmode=disable")
	want := "postgres://paint:s3cret@db:5433/paintms?sslmode=disable"
	if got != want {
		t.Fatalf("ToURLDSN() = %q, want %q", got, want)
	}
	if got := ToURLDSN("host=db"); got != "host=db" {
		t.Fatalf("incomplete DSN should be unchanged, got %q", got)
	}
}

func TestMaskDSN(t *testing.T) {
	cases := []struct{ in, want string }{
		{"postgres://u:secret@h:5432/x", "postgres://u:***@h:5432/x"},
		{"host=h user=u password=secret dbname=x", "host=h user=u password=*** dbname=x"},
		{"u:secret@tcp(h:3306)/x?parseTime=true", "u:***@tcp(h:3306)/x?parseTime=true"},
		{"paintms.db", "paintms.db"},
	}
	for _, c := range cases {
		if got := MaskDSN(c.in); got != c.want {
			t.Errorf("MaskDSN(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := SQLiteDSN("data/paintms.db"); got != "file:data/paintms.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" {
		t.Fatalf("SQLiteDSN() = %q", got)
	}
	if got := SQLiteDSN("file:x.db?_pragma=foreign_keys(1)"); got != "file:x.db?_pragma=foreign_keys(1)" {
		t.Fatalf("SQLiteDSN() changed an explicit DSN: %q", got)
	}
}
