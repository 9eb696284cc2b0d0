package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/server/kcs"
	"github.com/stretchr/testify/assert"
)

func Test_ParseConfig(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    Config
		expectErr bool
	}{
		{
			name:   "empty",
			input:  "",
			expect: Config{},
		},
		{
			name: "full",
			input: `token_secret = "abc"
db = "sqlite:/tmp/kc"
unauth_delay_ms = 50
workers = 3

[[clients]]
id = "ci"
secret_hash = "aGFzaA=="
admin = true

[[clients]]
id = "dev"
secret_hash = "aGFzaDI="
`,
			expect: Config{
				TokenSecret:       []byte("abc"),
				DB:                kernc.Database{Type: kernc.DatabaseSQLite, DataDir: "/tmp/kc"},
				UnauthDelayMillis: 50,
				Workers:           3,
				Clients: []kcs.Client{
					{ID: "ci", SecretHash: "aGFzaA==", Admin: true},
					{ID: "dev", SecretHash: "aGFzaDI="},
				},
			},
		},
		{
			name:      "bad db",
			input:     `db = "postgres:whatever"`,
			expectErr: true,
		},
		{
			name:      "bad toml",
			input:     `token_secret = `,
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := ParseConfig([]byte(tc.input))
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_LoadConfig(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "kcserver.toml")
	err := os.WriteFile(path, []byte("db = \"inmem\"\n"), 0644)
	if !assert.NoError(err) {
		return
	}

	cfg, err := LoadConfig(path)
	assert.NoError(err)
	assert.Equal(kernc.DatabaseInMemory, cfg.DB.Type)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(err)
}

func Test_Config_FillDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg := Config{}.FillDefaults()

	assert.Equal(kernc.DatabaseInMemory, cfg.DB.Type)
	assert.Equal(1000, cfg.UnauthDelayMillis)
	assert.NotEmpty(cfg.TokenSecret)
	assert.NoError(cfg.Validate())
}

func Test_Config_Validate(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	inmem := kernc.Database{Type: kernc.DatabaseInMemory}

	testCases := []struct {
		name      string
		cfg       Config
		expectErr bool
	}{
		{name: "valid", cfg: Config{TokenSecret: secret, DB: inmem}},
		{name: "short secret", cfg: Config{TokenSecret: []byte("short"), DB: inmem}, expectErr: true},
		{name: "long secret", cfg: Config{TokenSecret: append(append(append([]byte{}, secret...), secret...), 'x'), DB: inmem}, expectErr: true},
		{name: "no db", cfg: Config{TokenSecret: secret}, expectErr: true},
		{name: "negative workers", cfg: Config{TokenSecret: secret, DB: inmem, Workers: -1}, expectErr: true},
		{
			name: "duplicate client",
			cfg: Config{TokenSecret: secret, DB: inmem, Clients: []kcs.Client{
				{ID: "a", SecretHash: "aGFzaA=="},
				{ID: "a", SecretHash: "aGFzaA=="},
			}},
			expectErr: true,
		},
		{
			name:      "client without hash",
			cfg:       Config{TokenSecret: secret, DB: inmem, Clients: []kcs.Client{{ID: "a"}}},
			expectErr: true,
		},
		{
			name:      "client hash not base64",
			cfg:       Config{TokenSecret: secret, DB: inmem, Clients: []kcs.Client{{ID: "a", SecretHash: "!!"}}},
			expectErr: true,
		},
		{
			name:      "client without id",
			cfg:       Config{TokenSecret: secret, DB: inmem, Clients: []kcs.Client{{SecretHash: "aGFzaA=="}}},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			err := tc.cfg.Validate()
			if tc.expectErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}
