package main

import (
	"fmt"
	"log"

	"github.com/ruralretreats/tourism-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for Rural Retreats API")
	fmt.Println("===========================================")
	fmt.Println()

	accessSecret, refreshSecret, err := utils.GenerateJWTSecrets()
	if err != nil {
		log.Fatalf("Failed to generate JWT secrets: %v", err)
	}

	webhookSecret, err := utils.GenerateWebhookSecret()
	if err != nil {
		log.Fatalf("Failed to generate webhook secret: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", accessSecret)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", refreshSecret)
	fmt.Printf("RAZORPAY_WEBHOOK_SECRET=%s\n", webhookSecret)
	fmt.Println()
	fmt.Println("Paste the webhook secret into the Razorpay dashboard webhook settings as well.")
	fmt.Println("Keep these secrets out of version control.")
	fmt.Println("===========================================")
}
