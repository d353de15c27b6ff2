package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/utils"
)

func main() {
	jwtSecret, err := utils.GenerateJWTSecret()
	if err != nil {
		logrus.Fatalf("Failed to generate JWT secret: %v", err)
	}

	fmt.Println("Add this to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Println()
	fmt.Println("Keep it out of version control.")
}
