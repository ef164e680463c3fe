package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"filecatalog/internal/blobstore"
	"filecatalog/internal/config"
	"filecatalog/internal/database"
	"filecatalog/internal/domain/file"
)

func main() {
	remove := flag.Bool("delete", false, "remove orphaned blobs instead of only reporting them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DBConnectAttempts, cfg.DBConnectBackoff)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer database.Close(db)

	store, err := blobstore.New(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	audit, err := file.AuditStorage(ctx, file.NewRepository(db), store)
	if err != nil {
		log.Fatalf("audit failed: %v", err)
	}

	for _, name := range audit.Orphans {
		log.Printf("orphaned_blob filename=%s", name)
	}
	for _, f := range audit.Dangling {
		log.Printf("dangling_record id=%s filename=%s", f.ID, f.Filename)
	}

	removed := 0
	if *remove {
		for _, name := range audit.Orphans {
			if err := os.Remove(filepath.Join(store.Dir(), name)); err != nil {
				log.Printf("orphan_remove_failed filename=%s error=%q", name, err)
				continue
			}
			removed++
		}
	}

	log.Printf("storage audit completed: orphans=%d dangling=%d removed=%d",
		len(audit.Orphans), len(audit.Dangling), removed)
}
