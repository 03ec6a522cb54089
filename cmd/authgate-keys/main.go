package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hallgard/authgate/internal/config"
	"github.com/hallgard/authgate/internal/domain/auth"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	envConfig := config.LoadEnv()
	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		generateKey(cfg.Auth.KeysPath)
	case "list":
		listKeys(cfg.Auth.KeysPath, cfg.Auth.ActiveKID)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  generate              Generate a new RSA key pair\n")
	fmt.Fprintf(os.Stderr, "    -kid <id>           Key ID (required)\n")
	fmt.Fprintf(os.Stderr, "    -bits <size>        Key size: 2048, 3072, or 4096 (default: 2048)\n")
	fmt.Fprintf(os.Stderr, "    -path <dir>         Custom keys directory (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  list                  List all available keys\n")
}

func generateKey(keysPath string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	kid := fs.String("kid", "", "Key ID (required)")
	bits := fs.Int("bits", 2048, "Key size in bits (2048, 3072, or 4096)")
	customPath := fs.String("path", "", "Custom keys directory path (overrides config)")
	fs.Parse(os.Args[2:])

	if *kid == "" {
		fmt.Fprintf(os.Stderr, "Error: key ID is required\n")
		fmt.Fprintf(os.Stderr, "Usage: %s generate -kid <key-id> [-bits 2048] [-path ./keys]\n", os.Args[0])
		os.Exit(1)
	}

	if *bits != 2048 && *bits != 3072 && *bits != 4096 {
		fmt.Fprintf(os.Stderr, "Error: key size must be 2048, 3072, or 4096\n")
		os.Exit(1)
	}

	if *customPath != "" {
		keysPath = *customPath
	}

	if err := os.MkdirAll(keysPath, 0700); err != nil {
		slog.Error("Failed to create keys directory", "error", err, "path", keysPath)
		os.Exit(1)
	}

	privPath := filepath.Join(keysPath, fmt.Sprintf("private-%s.pem", *kid))
	pubPath := filepath.Join(keysPath, fmt.Sprintf("public-%s.pem", *kid))

	if _, err := os.Stat(privPath); err == nil {
		fmt.Fprintf(os.Stderr, "Error: key with ID %s already exists at %s\n", *kid, privPath)
		os.Exit(1)
	}

	fmt.Printf("Generating %d-bit RSA key pair...\n", *bits)
	privateKey, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		slog.Error("Failed to generate RSA key", "error", err)
		os.Exit(1)
	}

	privateKeyPEM := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}

	privateKeyFile, err := os.OpenFile(privPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		slog.Error("Failed to create private key file", "error", err, "path", privPath)
		os.Exit(1)
	}
	defer privateKeyFile.Close()

	if err := pem.Encode(privateKeyFile, privateKeyPEM); err != nil {
		slog.Error("Failed to encode private key", "error", err)
		os.Exit(1)
	}

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		slog.Error("Failed to marshal public key", "error", err)
		os.Exit(1)
	}

	publicKeyPEM := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	}

	publicKeyFile, err := os.OpenFile(pubPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		slog.Error("Failed to create public key file", "error", err, "path", pubPath)
		os.Exit(1)
	}
	defer publicKeyFile.Close()

	if err := pem.Encode(publicKeyFile, publicKeyPEM); err != nil {
		slog.Error("Failed to encode public key", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Key pair generated successfully\n")
	fmt.Printf("  Private key: %s\n", privPath)
	fmt.Printf("  Public key:  %s\n", pubPath)
	fmt.Printf("  Key ID:      %s\n", *kid)
}

func listKeys(keysPath, activeKID string) {
	info, err := os.Stat(keysPath)
	if err != nil {
		fmt.Printf("Keys directory does not exist: %s\n", keysPath)
		return
	}
	if !info.IsDir() {
		fmt.Printf("Keys path is not a directory: %s\n", keysPath)
		return
	}

	keyStore, err := auth.LoadKeys(keysPath, activeKID)
	if err != nil {
		fmt.Printf("Error loading keys: %v\n", err)
		return
	}

	keySet := keyStore.JWKS()
	if keySet.Len() == 0 {
		fmt.Printf("No keys found in %s\n", keysPath)
		return
	}

	normalizedActiveKID := activeKID
	if !strings.HasPrefix(normalizedActiveKID, "key-") {
		normalizedActiveKID = fmt.Sprintf("key-%s", normalizedActiveKID)
	}

	fmt.Printf("Keys in %s:\n\n", keysPath)
	for i := 0; i < keySet.Len(); i++ {
		key, ok := keySet.Key(i)
		if !ok {
			continue
		}

		kid, _ := key.KeyID()
		active := ""
		if kid == normalizedActiveKID {
			active = " (ACTIVE)"
		}
		fmt.Printf("  %s%s\n", kid, active)
	}

	fmt.Printf("\nActive KID: %s\n", activeKID)
}
