package store

import (
	"context"
	"errors"
	"strings"

	"doodle-chain/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore persists records through gorm. Updates overwrite every mutable
// column of one row; nothing spans rows.
type DBStore struct {
	conn *gorm.DB
}

func NewDBStore(conn *gorm.DB) *DBStore {
	return &DBStore{conn: conn}
}

func (s *DBStore) CreateDoodle(ctx context.Context, doodle *Doodle) error {
	record := toDoodleRecord(*doodle)
	record.ID = uuid.NewString()
	if err := s.conn.WithContext(ctx).Create(&record).Error; err != nil {
		return classifyDBError("create doodle", err)
	}
	doodle.ID = record.ID
	doodle.CreatedAt = record.CreatedAt
	return nil
}

func (s *DBStore) FetchDoodle(ctx context.Context, id string) (Doodle, error) {
	var record db.Doodle
	if err := s.conn.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return Doodle{}, classifyDBError("fetch doodle", err)
	}
	return fromDoodleRecord(record), nil
}

func (s *DBStore) UpdateDoodle(ctx context.Context, doodle Doodle) error {
	record := toDoodleRecord(doodle)
	updates := map[string]any{
		"image_data":  record.ImageData,
		"artist_id":   record.ArtistID,
		"parent_id":   record.ParentID,
		"root_id":     record.RootID,
		"tail_length": record.TailLength,
		"in_game":     record.InGame,
	}
	result := s.conn.WithContext(ctx).Model(&db.Doodle{}).Where("id = ?", doodle.ID).Updates(updates)
	if result.Error != nil {
		return classifyDBError("update doodle", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DBStore) DeleteDoodle(ctx context.Context, id string) error {
	result := s.conn.WithContext(ctx).Where("id = ?", id).Delete(&db.Doodle{})
	if result.Error != nil {
		return classifyDBError("delete doodle", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DBStore) QueryDoodles(ctx context.Context, query DoodleQuery) ([]Doodle, error) {
	tx := s.conn.WithContext(ctx).Model(&db.Doodle{})
	if query.Root != "" {
		tx = tx.Where("root_id = ?", query.Root)
	}
	if query.Parent != "" {
		tx = tx.Where("parent_id = ?", query.Parent)
	}
	if query.Artist != "" {
		tx = tx.Where("artist_id = ?", query.Artist)
	}
	if query.InGame != nil {
		tx = tx.Where("in_game = ?", *query.InGame)
	}
	var records []db.Doodle
	err := tx.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "tail_length"}},
		{Column: clause.Column{Name: "id"}},
	}}).Find(&records).Error
	if err != nil {
		return nil, classifyDBError("query doodles", err)
	}
	list := make([]Doodle, 0, len(records))
	for _, record := range records {
		list = append(list, fromDoodleRecord(record))
	}
	return list, nil
}

func (s *DBStore) CreateGame(ctx context.Context, game *Game) error {
	record := toGameRecord(*game)
	record.ID = uuid.NewString()
	if err := s.conn.WithContext(ctx).Create(&record).Error; err != nil {
		return classifyDBError("create game", err)
	}
	game.ID = record.ID
	return nil
}

func (s *DBStore) FetchGame(ctx context.Context, id string) (Game, error) {
	var record db.Game
	if err := s.conn.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return Game{}, classifyDBError("fetch game", err)
	}
	return fromGameRecord(record), nil
}

func (s *DBStore) FindGameByCode(ctx context.Context, code string) (Game, error) {
	var record db.Game
	err := s.conn.WithContext(ctx).
		Where("game_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&record).Error
	if err != nil {
		return Game{}, classifyDBError("find game", err)
	}
	return fromGameRecord(record), nil
}

// UpdateGame overwrites the mutable columns. The game code is fixed at
// creation and is never rewritten.
func (s *DBStore) UpdateGame(ctx context.Context, game Game) error {
	record := toGameRecord(game)
	updates := map[string]any{
		"creator_id": record.CreatorID,
		"players":    record.Players,
		"round":      record.Round,
		"time_limit": record.TimeLimit,
	}
	result := s.conn.WithContext(ctx).Model(&db.Game{}).Where("id = ?", game.ID).Updates(updates)
	if result.Error != nil {
		return classifyDBError("update game", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DBStore) DeleteGame(ctx context.Context, id string) error {
	result := s.conn.WithContext(ctx).Where("id = ?", id).Delete(&db.Game{})
	if result.Error != nil {
		return classifyDBError("delete game", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toDoodleRecord(doodle Doodle) db.Doodle {
	record := db.Doodle{
		ID:         doodle.ID,
		ImageData:  doodle.Image,
		ArtistID:   doodle.Artist,
		RootID:     doodle.Root,
		TailLength: doodle.TailLength,
		InGame:     doodle.InGame,
	}
	if record.ImageData == nil {
		record.ImageData = []byte{}
	}
	if doodle.Parent != "" {
		parent := doodle.Parent
		record.ParentID = &parent
	}
	return record
}

func fromDoodleRecord(record db.Doodle) Doodle {
	doodle := Doodle{
		ID:         record.ID,
		Image:      record.ImageData,
		Artist:     record.ArtistID,
		Root:       record.RootID,
		TailLength: record.TailLength,
		InGame:     record.InGame,
		CreatedAt:  record.CreatedAt,
	}
	if record.ParentID != nil {
		doodle.Parent = *record.ParentID
	}
	return doodle
}

func toGameRecord(game Game) db.Game {
	players := game.Players
	if players == nil {
		players = []string{}
	}
	return db.Game{
		ID:        game.ID,
		GameCode:  strings.ToUpper(game.GameCode),
		CreatorID: game.Creator,
		Players:   datatypes.NewJSONSlice(players),
		Round:     game.Round,
		TimeLimit: game.TimeLimit,
	}
}

func fromGameRecord(record db.Game) Game {
	players := []string(record.Players)
	if players == nil {
		players = []string{}
	}
	return Game{
		ID:        record.ID,
		GameCode:  record.GameCode,
		Creator:   record.CreatorID,
		Players:   players,
		Round:     record.Round,
		TimeLimit: record.TimeLimit,
	}
}

func classifyDBError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return transient(op, err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
