package pgpaper

import (
	"context"
	"database/sql"
	"fmt"

	dompaper "github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// Interactions reads the account service's interactions table.
type Interactions struct {
	conn *sql.DB
}

// NewInteractions creates an interaction reader.
func NewInteractions(conn *sql.DB) *Interactions {
	return &Interactions{conn: conn}
}

// InteractedContentIDs returns the ids of papers userID has interacted with.
func (i *Interactions) InteractedContentIDs(ctx context.Context, userID string) (*dompaper.IDSet, error) {
	rows, err := i.conn.QueryContext(ctx,
		`SELECT DISTINCT content_id FROM interactions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	set := dompaper.NewIDSet()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		set.Add(id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return set, nil
}
