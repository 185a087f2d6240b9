package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/packbridge/packbridge/core/infra/buildinfo"
	"github.com/packbridge/packbridge/core/infra/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "login":
		runLoginCmd(args)
	case "logout":
		runLogoutCmd(args)
	case "publish":
		runPublishCmd(args)
	case "batch":
		runBatchCmd(args)
	case "version":
		fmt.Println(buildinfo.Info())
	default:
		usage()
		os.Exit(1)
	}
}

type flagSet struct {
	*flag.FlagSet
	baseURL *string
	token   *string
}

func newFlagSet(name string) *flagSet {
	cfg := config.Load()
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("base-url", cfg.BaseURL, "management backend base url")
	token := fs.String("token", "", "bearer token (default: PACKBRIDGE_TOKEN, then keyring)")
	return &flagSet{FlagSet: fs, baseURL: baseURL, token: token}
}

func (fs *flagSet) ParseArgs(args []string) {
	if err := fs.Parse(args); err != nil {
		fail(err.Error())
	}
}

func usage() {
	fmt.Print(`packbridgectl - package publishing CLI

Usage:
  packbridgectl login [--token <token>]          store a bearer token in the OS keyring
  packbridgectl logout                           remove the stored bearer token
  packbridgectl publish --id <pkg> --name <display name> [--publisher p]
                        [--force] [--available None|User|Device|Both]
                        [--work-dir dir] [--no-progress]
  packbridgectl batch --file batch.yaml [--work-dir dir] [--no-progress]
  packbridgectl version

Global flags:
  --base-url  Backend base URL (default from PACKBRIDGE_BASE_URL)
  --token     Bearer token (default from PACKBRIDGE_TOKEN, then the OS keyring)
`)
}

func check(err error) {
	if err != nil {
		fail(err.Error())
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
