/*
Kcserver starts a kernel compile server and begins listening for new
connections.

Usage:

	kcserver [flags]
	kcserver [flags] -l [[ADDRESS]:PORT]
	kcserver --hash-secret SECRET

Once started, the compile server will listen for HTTP requests and respond to
them using REST protocol. By default, it will listen on localhost:8080. This can
be changed with the --listen/-l flag (or config via environment var). The flag
argument must be either a full address with port, such as "192.168.0.2:6001", or
just the IP address preceeded by a colon, such as ":6001".

Clients log in with an ID and secret listed in the config file. The config file
stores only a hash of each secret; use --hash-secret to produce one.

If a JWT token secret is not given, one will be automatically generated. As a
consequence, in this mode of operation all tokens are rendered invalid as soon
as the server shuts down. This is suitable for testing, but must be given via
the config file, CLI flags or environment variable if running in production.

The flags are:

	-v, --version
		Give the current version of the compile server and then exit.

	-c, --config FILE
		Read the server configuration from the given TOML file. Flags and
		environment variables override the values it sets.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Must be in BIND_ADDRESS:PORT or :PORT
		format. If not given, will default to the value of environment variable
		KERNC_LISTEN_ADDRESS, and if that is not given, will default to
		localhost:8080.

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing JWT tokens. If there are less than
		32 bytes in the secret, it will be repeated until it is. The maximum
		size is 64 bytes. If not given, will default to the value of environment
		variable KERNC_TOKEN_SECRET, then to the config file. If no secret is
		specified, a random secret will be automatically generated. Note that
		any tokens issued with a random secret will become invalid as soon as
		the server shuts down.

	--db DRIVER[:PARAMS]
		Use the given build cache connection string. DRIVER must be one of the
		following: inmem, sqlite. inmem has no further params. sqlite needs the
		path to the data directory such as sqlite:path/to/db_dir. If not given,
		will default to the value of environment variable KERNC_DATABASE, then
		to the config file. If no DB driver is specified, an in-memory cache is
		automatically selected.

	--hash-secret SECRET
		Print the hash of SECRET for use as a client secret_hash in the config
		file and then exit.
*/
package main

import (
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/internal/version"
	"github.com/dekarrin/kernc/server"
	"github.com/dekarrin/kernc/server/kcs"
	"github.com/spf13/pflag"
	"github.com/xyproto/env/v2"
)

const (
	EnvListen = "KERNC_LISTEN_ADDRESS"
	EnvSecret = "KERNC_TOKEN_SECRET"
	EnvDB     = "KERNC_DATABASE"
)

var (
	flagVersion    = pflag.BoolP("version", "v", false, "Give the current version of the compile server and then exit.")
	flagConfig     = pflag.StringP("config", "c", "", "Read the server configuration from the given TOML file.")
	flagListen     = pflag.StringP("listen", "l", "", "Listen on the given address.")
	flagSecret     = pflag.StringP("secret", "s", "", "Use the given secret for token generation.")
	flagDB         = pflag.String("db", "", "Use the given build cache connection string.")
	flagHashSecret = pflag.String("hash-secret", "", "Print the hash of the given client secret and then exit.")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s (kernc v%s)\n", version.ServerCurrent, version.Current)
		return
	}

	args := pflag.Args()

	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		os.Exit(1)
	}

	if pflag.Lookup("hash-secret").Changed {
		hash, err := kcs.HashSecret(*flagHashSecret)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err.Error())
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	// get address info
	port := 0
	addr := ""
	listenAddr := env.Str(EnvListen)
	if pflag.Lookup("listen").Changed {
		listenAddr = *flagListen
	}
	if listenAddr != "" {
		bindParts := strings.SplitN(listenAddr, ":", 2)
		if len(bindParts) != 2 {
			fmt.Fprintf(os.Stderr, "Listen address is not in ADDRESS:PORT or :PORT format.\nDo -h for help.\n")
			os.Exit(1)
		}

		var err error

		addr = bindParts[0]
		port, err = strconv.Atoi(bindParts[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%q is not a valid port number.\nDo -h for help.\n", bindParts[1])
			os.Exit(1)
		}
	}

	// assemble a server config
	var cfg server.Config
	if *flagConfig != "" {
		var err error
		cfg, err = server.LoadConfig(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not load config: %s\n", err.Error())
			os.Exit(1)
		}
	}

	dbConnStr := env.Str(EnvDB)
	if pflag.Lookup("db").Changed {
		dbConnStr = *flagDB
	}
	if dbConnStr != "" {
		db, err := kernc.ParseDBConnString(dbConnStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Not a valid DB string: %s\nDo -h for help.\n", err.Error())
			os.Exit(1)
		}
		cfg.DB = db
	}

	// get token secret
	tokSecStr := env.Str(EnvSecret)
	if pflag.Lookup("secret").Changed {
		tokSecStr = *flagSecret
	}
	if tokSecStr != "" {
		cfg.TokenSecret = []byte(tokSecStr)
	}

	if len(cfg.TokenSecret) > 0 {
		for len(cfg.TokenSecret) < server.MinSecretSize {
			doubled := make([]byte, len(cfg.TokenSecret)*2)
			copy(doubled, cfg.TokenSecret)
			copy(doubled[len(cfg.TokenSecret):], cfg.TokenSecret)
			cfg.TokenSecret = doubled
		}

		if len(cfg.TokenSecret) > server.MaxSecretSize {
			// keys would be chopped at 64, so rather than the user thinking
			// they have more security by giving a longer key, refuse to start.
			fmt.Fprintf(os.Stderr, "Token secret is %d bytes, but it must be <= %d bytes\nDo -h for help.\n", len(cfg.TokenSecret), server.MaxSecretSize)
			os.Exit(1)
		}
	} else {
		// use all 64 possible bytes if doing a generated secret
		cfg.TokenSecret = make([]byte, server.MaxSecretSize)
		_, err := rand.Read(cfg.TokenSecret)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not generate token secret: %s\n", err.Error())
			os.Exit(1)
		}

		log.Printf("WARN  Using generated token secret; all tokens issued will become invalid at shutdown")
	}

	if len(cfg.Clients) == 0 {
		log.Printf("WARN  No clients are configured; nobody will be able to log in")
	}

	// configuration complete, initialize the server
	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("FATAL could not start server: %s", err.Error())
	}
	defer srv.Close()
	log.Printf("DEBUG Server initialized")

	log.Printf("INFO  Starting kernel compile server %s...", version.ServerCurrent)
	if err := srv.ServeForever(addr, port); err != nil {
		log.Printf("FATAL %v", err)
		os.Exit(1)
	}
}
