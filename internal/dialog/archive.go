package dialog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Archive writes committed conversations to PostgreSQL for long-term
// analysis. Archiving is best-effort and optional: a nil Archive is a
// no-op, and the live request path never depends on it.
type Archive struct {
	db *sql.DB
}

// NewArchive creates a Postgres-backed archive writer.
func NewArchive(db *sql.DB) *Archive {
	if db == nil {
		return nil
	}
	return &Archive{db: db}
}

// Save upserts the dialog row and appends any turns not yet archived.
func (a *Archive) Save(ctx context.Context, record *Record) error {
	if a == nil || a.db == nil {
		return nil
	}

	now := time.Now().UTC()
	userTurns, systemTurns := 0, 0
	for _, turn := range record.Turns {
		if turn.Side == SideUser {
			userTurns++
		} else {
			systemTurns++
		}
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO dialogs (
			session_id, language_code, campaign_id, platform, label,
			turn_count, user_turn_count, system_turn_count,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO UPDATE SET
			turn_count = EXCLUDED.turn_count,
			user_turn_count = EXCLUDED.user_turn_count,
			system_turn_count = EXCLUDED.system_turn_count,
			updated_at = EXCLUDED.updated_at
	`, record.ID, record.LanguageCode, record.CampaignID, record.Platform, record.Label,
		len(record.Turns), userTurns, systemTurns, record.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("dialog: archive dialog %s: %w", record.ID, err)
	}

	for index, turn := range record.Turns {
		var text string
		if turn.Text != nil {
			text = *turn.Text
		}
		var intentLabel string
		var isConcern, isProfanity bool
		if turn.User != nil {
			intentLabel = string(turn.User.Intent.Label)
			isConcern = turn.User.IsConcern
			isProfanity = turn.User.IsProfanity
		}

		_, err := a.db.ExecContext(ctx, `
			INSERT INTO dialog_turns (
				id, session_id, turn_index, side, text, keypoint,
				intent_label, is_concern, is_profanity, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (session_id, turn_index) DO NOTHING
		`, uuid.New(), record.ID, index, string(turn.Side), text, turn.Keypoint,
			intentLabel, isConcern, isProfanity, turn.Timestamp)
		if err != nil {
			return fmt.Errorf("dialog: archive turn %d of %s: %w", index, record.ID, err)
		}
	}
	return nil
}
