package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"news-extractor/internal/observability"
	"news-extractor/internal/storage"
)

const schema = `
IF OBJECT_ID(N'TblArticles', N'U') IS NULL
CREATE TABLE TblArticles (
	[UID]       BIGINT IDENTITY(1,1) PRIMARY KEY,
	[URL]       NVARCHAR(2048) NOT NULL,
	[Medium]    NVARCHAR(128)  NOT NULL,
	[Title]     NVARCHAR(1024) NULL,
	[Published] DATETIME2      NULL,
	[Payload]   NVARCHAR(MAX)  NOT NULL,
	[CheckSum]  CHAR(64)       NOT NULL,
	[RunID]     CHAR(36)       NOT NULL,
	[ScrapedAt] DATETIME2      NOT NULL,
	CONSTRAINT UQ_TblArticles_URL UNIQUE ([URL])
);`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeoutMS int, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: time.Duration(commandTimeoutMS) * time.Millisecond,
		logger:         logger,
	}, nil
}

// UpsertArticle merges on URL. Matched rows are only rewritten when the
// checksum differs; OUTPUT $action tells which branch ran.
func (r *Repository) UpsertArticle(ctx context.Context, a *storage.Article) (isNew bool, isUpdated bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		MERGE INTO TblArticles AS target
		USING (SELECT @URL AS URL) AS source
		ON target.[URL] = source.URL
		WHEN MATCHED AND target.[CheckSum] <> @CheckSum THEN
			UPDATE SET
				[Medium] = @Medium,
				[Title] = @Title,
				[Published] = @Published,
				[Payload] = @Payload,
				[CheckSum] = @CheckSum,
				[RunID] = @RunID,
				[ScrapedAt] = @ScrapedAt
		WHEN NOT MATCHED THEN
			INSERT ([URL], [Medium], [Title], [Published], [Payload], [CheckSum], [RunID], [ScrapedAt])
			VALUES (@URL, @Medium, @Title, @Published, @Payload, @CheckSum, @RunID, @ScrapedAt)
		OUTPUT $action;
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return false, false, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	var published sql.NullTime
	if a.Published != nil {
		published = sql.NullTime{Time: *a.Published, Valid: true}
	}

	var action string
	err = stmt.QueryRowContext(ctx,
		sql.Named("URL", a.URL),
		sql.Named("Medium", a.Medium),
		sql.Named("Title", a.Title),
		sql.Named("Published", published),
		sql.Named("Payload", string(a.Payload)),
		sql.Named("CheckSum", a.CheckSum),
		sql.Named("RunID", a.RunID.String()),
		sql.Named("ScrapedAt", a.ScrapedAt),
	).Scan(&action)
	if errors.Is(err, sql.ErrNoRows) {
		// matched with the same checksum
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to execute upsert: %w", err)
	}

	switch action {
	case "INSERT":
		return true, false, nil
	case "UPDATE":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unexpected merge action %q", action)
	}
}

func (r *Repository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM TblArticles WHERE [URL] = @URL`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	var count int
	err = stmt.QueryRowContext(ctx, sql.Named("URL", url)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query database: %w", err)
	}

	return count > 0, nil
}

func (r *Repository) CountByMedium(ctx context.Context, medium string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM TblArticles WHERE [Medium] = @Medium`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	var count int
	err = stmt.QueryRowContext(ctx, sql.Named("Medium", medium)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}

	return count, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var _ storage.Repository = (*Repository)(nil)
