// Command hashpassword prints an argon2id hash for ADMIN_PASSWORD_HASH.
// On a terminal the password is read twice without echo; otherwise the
// first line of stdin is used.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/gochang/agri-notify/internal/adminauth"
)

const minPasswordLength = 8

func main() {
	password, err := readPassword()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "hashpassword: %v\n", err)
		os.Exit(1)
	}
	hash, err := adminauth.HashPassword(password)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "hashpassword: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return validate(strings.TrimRight(line, "\r\n"))
	}

	_, _ = fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	_, _ = fmt.Fprint(os.Stderr, "Confirm: ")
	second, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return validate(string(first))
}

func validate(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return password, nil
}
