package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	appdb "github.com/yourorg/cloudlock/internal/db"
	"github.com/yourorg/cloudlock/internal/models"
	"github.com/yourorg/cloudlock/internal/store"
)

func main() {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Println("==== CloudLock CLI ====")
		fmt.Println("1) Health check API")
		fmt.Println("2) Seed database (create sample user)")
		fmt.Println("3) Reset master password for a user")
		fmt.Println("4) Show file libraries")
		fmt.Println("5) Exit")
		fmt.Print("Select option: ")
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)
		switch choice {
		case "1":
			doHealthCheck()
		case "2":
			doSeed()
		case "3":
			doResetMasterPassword(reader)
		case "4":
			doShowLibraries()
		case "5":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Invalid option")
		}
		fmt.Println()
	}
}

func doHealthCheck() {
	base := os.Getenv("BASE_URL")
	if base == "" {
		base = "http://127.0.0.1:8080"
	}
	url := strings.TrimRight(base, "/") + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		fmt.Println("Health: ERROR:", err)
		return
	}
	defer resp.Body.Close()
	fmt.Println("Health status:", resp.Status)
}

func connect() *sql.DB {
	db, err := appdb.Connect()
	if err != nil {
		log.Println("DB connect error:", err)
		return nil
	}
	if err := appdb.EnsureSchema(db); err != nil {
		log.Println("Ensure schema error:", err)
		db.Close()
		return nil
	}
	return db
}

func doSeed() {
	db := connect()
	if db == nil {
		return
	}
	defer db.Close()
	seedUser(db)
}

// doResetMasterPassword limpia la credencial secundaria de un usuario (la
// fila queda con password NULL, nunca se borra): en el próximo request el
// gate lo mandará de vuelta a /security a configurar una nueva.
func doResetMasterPassword(reader *bufio.Reader) {
	db := connect()
	if db == nil {
		return
	}
	defer db.Close()

	fmt.Print("Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	var userID int64
	if err := db.QueryRow("SELECT id FROM users WHERE username = ?", username).Scan(&userID); err != nil {
		fmt.Println("Reset: user not found:", err)
		return
	}

	creds := store.NewCredentialStore(db)
	cleared, err := creds.ClearMasterHash(context.Background(), userID)
	if err != nil {
		fmt.Println("Reset: clear error:", err)
		return
	}
	if !cleared {
		fmt.Printf("Reset: user %q had no master password configured\n", username)
		return
	}
	fmt.Printf("Reset: master password cleared for %q; next visit redirects to /security\n", username)
}

func doShowLibraries() {
	db := connect()
	if db == nil {
		return
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT u.username, m.files, m.secured
		FROM myfiles m JOIN users u ON u.id = m.user_id
		ORDER BY u.username
	`)
	if err != nil {
		fmt.Println("Libraries: query error:", err)
		return
	}
	defer rows.Close()

	any := false
	for rows.Next() {
		var (
			username string
			raw      []byte
			secured  bool
		)
		if err := rows.Scan(&username, &raw, &secured); err != nil {
			fmt.Println("Libraries: scan error:", err)
			return
		}
		var files []models.FileRecord
		if err := json.Unmarshal(raw, &files); err != nil {
			fmt.Printf("%-20s (files JSON corrupto: %v)\n", username, err)
			continue
		}
		any = true
		fmt.Printf("%-20s %d archivo(s), secured=%v\n", username, len(files), secured)
		for i, f := range files {
			fmt.Printf("   [%d] %-30s %-6s %s\n", i, f.Name, f.FileType, f.UploadedAt.Format("2006-01-02 15:04"))
		}
	}
	if err := rows.Err(); err != nil {
		fmt.Println("Libraries: rows error:", err)
		return
	}
	if !any {
		fmt.Println("Libraries: no file rows yet")
	}
}

func seedUser(db *sql.DB) {
	// Creates a sample user if not exists
	username := "demo"
	email := "demo@example.com"
	name := "Demo"
	password := "demo1234"
	var exists int
	_ = db.QueryRow("SELECT 1 FROM users WHERE username = ?", username).Scan(&exists)
	if exists == 1 {
		fmt.Println("Seed: user 'demo' already exists")
		return
	}
	hash, err := bcryptHash(password)
	if err != nil {
		fmt.Println("Seed: bcrypt error:", err)
		return
	}
	res, err := db.Exec("INSERT INTO users (username,email,name,password_hash) VALUES (?,?,?,?)", username, email, name, hash)
	if err != nil {
		fmt.Println("Seed: insert error:", err)
		return
	}
	fmt.Println("Seed: created user 'demo' with password 'demo1234'")

	// El master password de demo parte configurado para probar el unlock
	userID, err := res.LastInsertId()
	if err != nil {
		return
	}
	masterHash, err := bcryptHash("Demo!Master1")
	if err != nil {
		fmt.Println("Seed: bcrypt error:", err)
		return
	}
	creds := store.NewCredentialStore(db)
	if err := creds.UpsertMasterHash(context.Background(), userID, masterHash); err != nil {
		fmt.Println("Seed: master password error:", err)
		return
	}
	fmt.Println("Seed: master password for 'demo' is 'Demo!Master1'")
}

func bcryptHash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}
