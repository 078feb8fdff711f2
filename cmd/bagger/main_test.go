package main

import (
	"bufio"
	"bytes"
	"os"
	"strings"
	"testing"

	"golang.org/x/term"
)

func TestPromptPassword_PipedInput(t *testing.T) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		t.Skip("stdin is a terminal")
	}
	var out bytes.Buffer
	oldIn, oldOut := stdin, promptOut
	stdin, promptOut = bufio.NewReader(strings.NewReader("correct horse\r\nnext\n")), &out
	t.Cleanup(func() { stdin, promptOut = oldIn, oldOut })

	pw, err := promptPassword("Password: ")
	if err != nil {
		t.Fatalf("promptPassword() error = %v", err)
	}
	if pw != "correct horse" {
		t.Errorf("promptPassword() = %q, want %q", pw, "correct horse")
	}
	if out.String() != "Password: " {
		t.Errorf("label output = %q, want %q", out.String(), "Password: ")
	}

	email, err := prompt("Email: ")
	if err != nil {
		t.Fatalf("prompt() error = %v", err)
	}
	if email != "next" || out.String() != "Password: Email: " {
		t.Errorf("prompt() = %q, output %q", email, out.String())
	}
}
