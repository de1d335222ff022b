package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/attec/attec-api/internal/auth"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func genSecretCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "gen-secret",
		Short: "Generate a random JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := auth.GenerateSigningKey(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "bytes", 48, fmt.Sprintf("Random bytes (minimum %d)", auth.MinSigningKeyLen))
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the argon2id hash of a password",
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			var err error
			if fromStdin {
				password, err = readLine(cmd.InOrStdin())
			} else {
				password, err = promptNewPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the password from stdin")
	return cmd
}

// promptNewPassword reads a password twice from the terminal without echo.
func promptNewPassword(w io.Writer) (string, error) {
	first, err := promptPassword(w, "Password: ")
	if err != nil {
		return "", err
	}
	second, err := promptPassword(w, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func promptPassword(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// readLine reads one line from r without its line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
