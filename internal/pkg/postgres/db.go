package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rapidlearn/audiostory/internal/pkg/persistence"
	"github.com/rapidlearn/audiostory/internal/pkg/status"
	"github.com/rapidlearn/audiostory/internal/pkg/utils"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	res := &DB{pool: pool}
	return res, nil
}

const storyFields = `id, owner_id, topic, doubt, complexity, status, story_text, audio_url, duration, error, created, updated`

// InsertStory inserts new story record into DB
func (db *DB) InsertStory(ctx context.Context, item *persistence.Story) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO stories(id, owner_id, topic, doubt, complexity, status, created, updated)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8)`, item.ID, item.OwnerID, item.Topic, item.Doubt,
		item.Complexity, item.Status, item.Created, item.Updated)
	if err != nil {
		return fmt.Errorf("can't insert story: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadStory loads story from DB, returns nil if not found
func (db *DB) LoadStory(ctx context.Context, id string) (*persistence.Story, error) {
	var res persistence.Story
	err := db.pool.QueryRow(ctx, `SELECT `+storyFields+` FROM stories
		WHERE id = $1`, id).Scan(&res.ID, &res.OwnerID, &res.Topic, &res.Doubt, &res.Complexity,
		&res.Status, &res.StoryText, &res.AudioURL, &res.Duration, &res.Error, &res.Created, &res.Updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load story: %w", err)
	}
	return &res, nil
}

// ListStories loads up to limit of the owner's stories, newest first
func (db *DB) ListStories(ctx context.Context, ownerID string, limit int) ([]*persistence.Story, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+storyFields+` FROM stories
		WHERE owner_id = $1 ORDER BY created DESC LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("can't load stories: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Story{}
	for rows.Next() {
		var item persistence.Story
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Topic, &item.Doubt, &item.Complexity,
			&item.Status, &item.StoryText, &item.AudioURL, &item.Duration, &item.Error,
			&item.Created, &item.Updated); err != nil {
			return nil, fmt.Errorf("can't scan story: %w", err)
		}
		res = append(res, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't load stories: %w", err)
	}
	return res, nil
}

// UpdateStoryText saves generated text
func (db *DB) UpdateStoryText(ctx context.Context, id, text string) error {
	return db.update(ctx, `UPDATE stories SET
	story_text = $2,
	updated = $3
	WHERE id = $1`, id, text, time.Now())
}

// UpdateStoryCompleted moves story to the completed state
func (db *DB) UpdateStoryCompleted(ctx context.Context, id, audioURL string, duration int) error {
	return db.update(ctx, `UPDATE stories SET
	status = $2,
	audio_url = $3,
	duration = $4,
	updated = $5
	WHERE id = $1`, id, status.Completed.String(), audioURL, utils.ToSQLInt32(int32(duration)), time.Now())
}

// UpdateStoryFailed moves story to the failed state
func (db *DB) UpdateStoryFailed(ctx context.Context, id, errMsg string) error {
	return db.update(ctx, `UPDATE stories SET
	status = $2,
	error = $3,
	updated = $4
	WHERE id = $1`, id, status.Failed.String(), utils.ToSQLStr(errMsg), time.Now())
}

func (db *DB) update(ctx context.Context, sql string, args ...interface{}) error {
	rows, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("can't update story: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't update story, no records found")
	}
	return nil
}

// DeleteStory removes story record, returns false if no record was found
func (db *DB) DeleteStory(ctx context.Context, id string) (bool, error) {
	rows, err := db.pool.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("can't delete story: %w", err)
	}
	return rows.RowsAffected() == 1, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'stories')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
