package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/noah-isme/parkconnect-api/internal/app"
)

// hashpass prints the argon2id hash for ADMIN_PASSWORD_HASH or
// VERIFIER_PASSWORD_HASH. The password is read from -p or stdin.
func main() {
	password := flag.String("p", "", "password to hash (read from stdin when empty)")
	flag.Parse()

	pw := *password
	if pw == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "read password:", err)
			os.Exit(1)
		}
		pw = strings.TrimRight(line, "\r\n")
	}

	hash, err := app.HashPassword(pw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
