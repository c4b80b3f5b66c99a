package database

import (
	"errors"
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("IsUniqueViolation message fallback", func(t *testing.T) {
		err := errors.New("UNIQUE constraint failed: child_profiles.pairing_code")
		if !dialect.IsUniqueViolation(err) {
			t.Error("IsUniqueViolation() = false for a constraint message")
		}
		if dialect.IsUniqueViolation(errors.New("no such table: child_profiles")) {
			t.Error("IsUniqueViolation() = true for an unrelated error")
		}
		if dialect.IsUniqueViolation(nil) {
			t.Error("IsUniqueViolation(nil) = true")
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("IsUniqueViolation ignores plain errors", func(t *testing.T) {
		if dialect.IsUniqueViolation(errors.New("duplicate key value")) {
			t.Error("IsUniqueViolation() = true for a non-pq error")
		}
		if dialect.IsUniqueViolation(nil) {
			t.Error("IsUniqueViolation(nil) = true")
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("IsUniqueViolation ignores plain errors", func(t *testing.T) {
		if dialect.IsUniqueViolation(errors.New("Duplicate entry")) {
			t.Error("IsUniqueViolation() = true for a non-driver error")
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM child_profiles WHERE id = ?",
			expected: "SELECT * FROM child_profiles WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM child_profiles WHERE id = ?",
			expected: "SELECT * FROM child_profiles WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO parents (account_id, name) VALUES (?, ?)",
			expected: "INSERT INTO parents (account_id, name) VALUES ($1, $2)",
		},
		{
			name:     "PostgreSQL conditional update",
			dialect:  NewPostgresDialect(),
			query:    "UPDATE child_profiles SET device_id = ? WHERE id = ? AND pairing_code = ? AND device_id IS NULL",
			expected: "UPDATE child_profiles SET device_id = $1 WHERE id = $2 AND pairing_code = $3 AND device_id IS NULL",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?",
			expected: "UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}
