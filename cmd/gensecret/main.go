// Prints a random SECRET_KEY line ready to append to .env
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultKeyLen = 32

func main() {
	var size int
	var raw bool

	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)
	fs.IntVarP(&size, "bytes", "n", defaultKeyLen, "Number of random bytes in the key")
	fs.BoolVar(&raw, "raw", false, "Print the key only, without SECRET_KEY= prefix")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	key, err := generate(size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	if raw {
		fmt.Println(key)
		return
	}
	fmt.Printf("SECRET_KEY=%s\n", key)
}

func generate(size int) (string, error) {
	if size < 16 {
		return "", fmt.Errorf("key must be at least 16 bytes, got %d", size)
	}

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
