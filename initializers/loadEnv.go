package initializers

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env into the process environment. A missing file is fine;
// deployments set real environment variables instead.
func LoadEnv() {
	err := godotenv.Load()
	if err == nil {
		log.Println("Loaded environment from .env")
		return
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Could not read .env: %v", err)
	}
}
