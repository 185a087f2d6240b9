package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/packbridge/packbridge/core/backend"
)

func runLoginCmd(args []string) {
	fs := newFlagSet("login")
	fs.ParseArgs(args)

	token := strings.TrimSpace(*fs.token)
	if token == "" {
		fmt.Fprint(os.Stderr, "token: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fail("read token: " + err.Error())
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		fail("token required")
	}
	check(backend.StoreToken(token))
	fmt.Println("token stored")
}

func runLogoutCmd(args []string) {
	fs := newFlagSet("logout")
	fs.ParseArgs(args)
	check(backend.DeleteToken())
	fmt.Println("token removed")
}
