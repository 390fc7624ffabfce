package db

import (
	"os"
	"testing"
)

func TestAutoMigrateAndIndexes_Idempotent(t *testing.T) {
	dsn := os.Getenv("RECUERDITO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("RECUERDITO_TEST_DATABASE_URL not set")
	}
	gdb, err := Connect(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := AutoMigrateAndIndexes(gdb); err != nil {
			t.Fatalf("migrate #%d: %v", i+1, err)
		}
	}
	for _, table := range []string{"reminders", "jobs", "users"} {
		if !gdb.Migrator().HasTable(table) {
			t.Errorf("table %s missing", table)
		}
	}
}
