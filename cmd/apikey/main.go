// apikey печатает bcrypt-хэш ключа автоматизации в формате переменной API_KEYS.
//
//	go run ./cmd/apikey -name stats-bot -scopes leaderboard:write
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Dosada05/arena-hub/config"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	name := flag.String("name", "", "key name, shown in logs")
	scopes := flag.String("scopes", "", "scopes separated by '|', e.g. leaderboard:write|tournaments:write")
	key := flag.String("key", "", "raw key; a random one is generated when empty")
	flag.Parse()

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*scopes) == "" {
		flag.Usage()
		os.Exit(2)
	}

	raw := *key
	if raw == "" {
		raw = strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to hash key:", err)
		os.Exit(1)
	}

	entry := fmt.Sprintf("%s:%s:%s", *name, *scopes, base64.StdEncoding.EncodeToString(hash))
	// проверяем, что сервер сможет разобрать запись
	if _, err := config.ParseAPIKeys(entry); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("key:     ", raw)
	fmt.Println("API_KEYS:", entry)
}
