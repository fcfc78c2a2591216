// Command post-processing loads exported comparison snapshots into a
// SQLite history database.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type cell struct {
	Repository string `json:"repository"`
	Count      int    `json:"count"`
	Uniques    int    `json:"uniques"`
}

type row struct {
	Date  string `json:"date"`
	Cells []cell `json:"cells"`
}

type snapshot struct {
	Date       string `json:"date"`
	Comparison struct {
		Views      []row `json:"views"`
		Clones     []row `json:"clones"`
		Popularity []struct {
			Repository string `json:"repository"`
			Stars      int    `json:"stars"`
			Forks      int    `json:"forks"`
		} `json:"popularity"`
	} `json:"comparison"`
}

func main() {
	dbPath := flag.String("db", "history.db", "SQLite database file")
	dir := flag.String("dir", "../history", "directory containing exported snapshots")
	flag.Parse()

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := createTables(db); err != nil {
		log.Fatal(err)
	}

	err = filepath.Walk(*dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		if err := processFile(db, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error walking the path %q: %v", *dir, err)
	}
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS popularity (
			date TEXT,
			repository TEXT,
			stars INTEGER,
			forks INTEGER,
			PRIMARY KEY (date, repository)
		);
		CREATE TABLE IF NOT EXISTS traffic (
			day TEXT,
			repository TEXT,
			kind TEXT,
			count INTEGER,
			uniques INTEGER,
			PRIMARY KEY (day, repository, kind)
		);
		CREATE TABLE IF NOT EXISTS repositories (
			repository TEXT PRIMARY KEY,
			first_seen TEXT
		);
	`)
	return err
}

func processFile(db *sql.DB, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	// Snapshots exported in slack mode are wrapped in a code block.
	data = []byte(strings.Trim(strings.TrimSpace(string(data)), "`"))

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Date == "" {
		snap.Date = strings.TrimSuffix(filepath.Base(filePath), ".json")
	}
	snap.Date = isoDate(snap.Date)

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range snap.Comparison.Popularity {
		if _, err := tx.Exec("INSERT OR REPLACE INTO popularity (date, repository, stars, forks) VALUES (?, ?, ?, ?)",
			snap.Date, p.Repository, p.Stars, p.Forks); err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO repositories (repository, first_seen) VALUES (?, ?) ON CONFLICT(repository) DO UPDATE SET first_seen = MIN(first_seen, ?)",
			p.Repository, snap.Date, snap.Date); err != nil {
			return err
		}
	}

	// A later snapshot overwrites a day because the API revises recent counts.
	if err := insertTraffic(tx, "views", snap.Comparison.Views); err != nil {
		return err
	}
	if err := insertTraffic(tx, "clones", snap.Comparison.Clones); err != nil {
		return err
	}

	return tx.Commit()
}

// isoDate rewrites export dates like 2024-Jan-02 as 2024-01-02 so they
// order correctly in SQL.
func isoDate(s string) string {
	t, err := time.Parse("2006-Jan-02", s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}

func insertTraffic(tx *sql.Tx, kind string, rows []row) error {
	for _, r := range rows {
		for _, c := range r.Cells {
			if _, err := tx.Exec("INSERT OR REPLACE INTO traffic (day, repository, kind, count, uniques) VALUES (?, ?, ?, ?, ?)",
				r.Date, c.Repository, kind, c.Count, c.Uniques); err != nil {
				return err
			}
		}
	}
	return nil
}
