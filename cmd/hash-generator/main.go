// Command hash-generator prints bcrypt hashes in the format stored in
// users.hashed_password, for seeding development databases.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: hash-generator [-cost N] password...")
		os.Exit(2)
	}

	hasher := auth.NewBcryptHasher(*cost)
	failed := false
	for _, password := range flag.Args() {
		if err := domain.ValidatePassword(password); err != nil {
			fmt.Fprintf(os.Stderr, "skipping password: %v\n", err)
			failed = true
			continue
		}
		hash, err := hasher.Hash(password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error generating hash: %v\n", err)
			failed = true
			continue
		}
		fmt.Println(hash)
	}
	if failed {
		os.Exit(1)
	}
}
