package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hambosto/secarc/internal/archive"
)

func main() {
	password := []byte("correct horse battery staple")

	source, err := os.CreateTemp("", "secarc-demo-src-*.txt")
	if err != nil {
		log.Fatalf("failed to create source file: %v", err)
	}
	defer os.Remove(source.Name())

	if _, err := source.WriteString("this is a secret message bound for a self-destructing archive"); err != nil {
		log.Fatalf("failed to write source file: %v", err)
	}
	source.Close()

	archivePath := source.Name() + ".secarc"
	defer os.Remove(archivePath)

	w, err := archive.New(archive.DefaultConfig())
	if err != nil {
		log.Fatalf("failed to initialize writer: %v", err)
	}
	if err := w.AddFile(source.Name(), "message.txt"); err != nil {
		log.Fatalf("failed to add file: %v", err)
	}
	if err := w.WriteToFile(archivePath, password); err != nil {
		log.Fatalf("failed to write archive: %v", err)
	}

	r, err := archive.Open(archivePath)
	if err != nil {
		log.Fatalf("failed to open archive: %v", err)
	}
	defer r.Close()

	if err := r.Unlock(password); err != nil {
		log.Fatalf("failed to unlock archive: %v", err)
	}

	files, err := r.ListFiles()
	if err != nil {
		log.Fatalf("failed to list files: %v", err)
	}
	fmt.Println("Files in archive:", files)

	outputPath := source.Name() + ".out"
	defer os.Remove(outputPath)

	if err := r.ExtractFile("message.txt", outputPath); err != nil {
		log.Fatalf("failed to extract file: %v", err)
	}

	extracted, err := os.ReadFile(outputPath)
	if err != nil {
		log.Fatalf("failed to read extracted file: %v", err)
	}

	info := r.Info()
	fmt.Println("Extracted   :", string(extracted))
	fmt.Printf("Attempts    : %d/%d (remaining %d)\n", info.AttemptCount, info.MaxAttempts, info.AttemptsRemaining)
}
