package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
)

// Loadenv loads .env files into the process environment before the config is
// read. Missing files are not an error; deployed processes use real env vars.
func Loadenv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}
