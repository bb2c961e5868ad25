package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"jobtrack/internal/auth"
	"jobtrack/internal/config"
	"jobtrack/internal/db"
	"jobtrack/internal/logging"
	"jobtrack/internal/model"
	"jobtrack/internal/notify"
	"jobtrack/internal/repository"
	"jobtrack/internal/service"
)

const seedDocument = `[
  {"firstName": "Ana", "lastName": "Lima", "email": "ana@example.com", "password": "Str0ng!Pass",
   "currentTitle": "Engineer", "targetSalary": 95000, "jobPreferences": {"workType": "Remote"}},
  {"firstName": "Bo", "lastName": "Chen", "email": "bo@example.com", "password": "An0ther!Pass"},
  {"firstName": "Cy", "lastName": "Diaz", "email": "cy@example.com", "password": "weak"}
]`

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "seed"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	configFile = ""
	t.Cleanup(func() { configFile = "" })

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "--config=/etc/jobtrack.yaml", "--help"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "/etc/jobtrack.yaml", configFile)
}

func TestCommands_Flags(t *testing.T) {
	tests := []struct {
		cmd   string
		flags []string
	}{
		{cmd: "serve", flags: []string{"server-port", "redis-addr"}},
		{cmd: "migrate", flags: []string{"reset"}},
		{cmd: "seed", flags: []string{"source"}},
	}

	root := NewRootCmd()
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.cmd})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "missing --%s", name)
			}
			for _, name := range []string{"config", "env", "db-driver", "database-dsn", "log-format"} {
				assert.NotNil(t, sub.InheritedFlags().Lookup(name), "missing inherited --%s", name)
			}
		})
	}
}

func TestMigrateCommand_SQLite(t *testing.T) {
	configFile = ""
	dsn := filepath.Join(t.TempDir(), "jobtrack.db")
	t.Setenv("JWT_SECRET", "cli-test-secret")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"migrate", "--db-driver", "sqlite", "--database-dsn", dsn, "--reset"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Dropping tables...")
	assert.Contains(t, buf.String(), "Migrations completed successfully")

	gormDB, err := db.Open(context.Background(), "sqlite", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close(gormDB) }()
	assert.True(t, gormDB.Migrator().HasTable(&model.User{}))
}

func TestMigrateCommand_MissingSecret(t *testing.T) {
	configFile = ""
	t.Setenv("JWT_SECRET", "")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "--db-driver", "sqlite", "--database-dsn", filepath.Join(t.TempDir(), "x.db")})

	err := cmd.Execute()
	assert.ErrorIs(t, err, config.ErrMissingJWTSecret)
}

func TestFetchSeedUsers_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(seedDocument), 0o600))

	users, err := fetchSeedUsers(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "ana@example.com", users[0].Email)
	require.NotNil(t, users[0].TargetSalary)
	assert.Equal(t, "95000", users[0].TargetSalary.String())
	require.NotNil(t, users[0].JobPreferences)
	assert.Equal(t, model.WorkTypeRemote, users[0].JobPreferences.WorkType)
	assert.Nil(t, users[1].TargetSalary)
}

func TestFetchSeedUsers_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(seedDocument))
	}))
	defer srv.Close()

	users, err := fetchSeedUsers(context.Background(), srv.URL+"/users.json")
	require.NoError(t, err)
	assert.Len(t, users, 3)

	_, err = fetchSeedUsers(context.Background(), srv.URL+"/missing.json")
	assert.ErrorContains(t, err, "status code: 404")
}

func TestFetchSeedUsers_Errors(t *testing.T) {
	_, err := fetchSeedUsers(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o600))
	_, err = fetchSeedUsers(context.Background(), path)
	assert.ErrorContains(t, err, "failed to parse JSON")
}

func TestSeedUsers(t *testing.T) {
	ctx := context.Background()
	gormDB := openTestDB(t)

	repo := repository.NewUserRepository(gormDB, nil)
	svc := newTestService(t, repo)

	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(seedDocument), 0o600))
	users, err := fetchSeedUsers(ctx, path)
	require.NoError(t, err)

	var skipped []string
	res, err := seedUsers(ctx, svc, users, func(u SeedUser, _ error) {
		skipped = append(skipped, u.Email)
	})
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Created: 2, Rejected: 1}, res)
	assert.Equal(t, []string{"cy@example.com"}, skipped)

	stored, err := repo.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Engineer", stored.CurrentTitle)
	assert.True(t, stored.IsActive)

	// A second run leaves existing accounts alone.
	res, err = seedUsers(ctx, svc, users, nil)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Existing: 2, Rejected: 1}, res)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.Open(context.Background(), "sqlite",
		fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gormDB) })
	require.NoError(t, db.Migrate(gormDB, false))
	return gormDB
}

func newTestService(t *testing.T, repo repository.UserRepository) service.AuthService {
	t.Helper()
	tokens, err := auth.NewJWTService("seed-test-secret", 0)
	require.NoError(t, err)
	svc, err := service.NewAuthService(service.Deps{
		Users:    repo,
		Hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
		Tokens:   tokens,
		Notifier: notify.NewMemoryNotifier(),
		Logger:   logging.Discard(),
	}, service.Config{})
	require.NoError(t, err)
	t.Cleanup(svc.Wait)
	return svc
}
