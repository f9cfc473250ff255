package sqlite

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/tdis-data/mtpc.reco/internal/security"
)

// TableStats is the row count of one reco table.
type TableStats struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

var recoTables = []string{"reco_runs", "reco_events", "reco_hits", "reco_measurements"}

// TableStats returns the row count of every reco table.
func (s *Store) TableStats() ([]TableStats, error) {
	stats := make([]TableStats, 0, len(recoTables))
	for _, name := range recoTables {
		var n int64
		if err := s.QueryRow("SELECT COUNT(*) FROM " + name).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		stats = append(stats, TableStats{Name: name, Rows: n})
	}
	return stats, nil
}

// AttachAdminRoutes mounts the /debug/ pages: live SQL, table stats and a
// database backup download.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(s.path), s.DB, &tailsql.DBOptions{
		Label: "Reconstruction DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Row counts of the reconstruction tables", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.TableStats()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}))

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := security.SanitizeFilename(strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path)))
		backupPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-backup-%d.db", name, s.clock.Now().UnixNano()))
		if _, err := s.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer backupFile.Close()

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", filepath.Base(backupPath)))
		w.Header().Set("Content-Type", "application/gzip")

		gz := gzip.NewWriter(w)
		defer gz.Close()
		if _, err := io.Copy(gz, backupFile); err != nil {
			log.Printf("Failed to write backup: %v", err)
		}
	}))
}
