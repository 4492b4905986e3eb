package store

import (
	"time"
)

// DoodlePayload is the JSON shape of a doodle on the store API. The image
// travels as a data URL.
type DoodlePayload struct {
	ID         string    `json:"id,omitempty"`
	ImageData  string    `json:"image_data" binding:"required"`
	Artist     string    `json:"artist" binding:"required,user"`
	Parent     string    `json:"parent,omitempty"`
	Root       string    `json:"root" binding:"required"`
	TailLength int       `json:"tail_length" binding:"min=1"`
	InGame     bool      `json:"in_game"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

type GamePayload struct {
	ID        string   `json:"id,omitempty"`
	GameCode  string   `json:"game_code" binding:"required,gamecode"`
	Creator   string   `json:"creator" binding:"required,user"`
	Players   []string `json:"players" binding:"dive,user"`
	Round     int      `json:"round" binding:"min=-1"`
	TimeLimit int      `json:"time_limit" binding:"min=1"`
}

func NewDoodlePayload(doodle Doodle) DoodlePayload {
	return DoodlePayload{
		ID:         doodle.ID,
		ImageData:  EncodeImageData(doodle.Image),
		Artist:     doodle.Artist,
		Parent:     doodle.Parent,
		Root:       doodle.Root,
		TailLength: doodle.TailLength,
		InGame:     doodle.InGame,
		CreatedAt:  doodle.CreatedAt,
	}
}

func (p DoodlePayload) Doodle() (Doodle, error) {
	image, err := DecodeImageData(p.ImageData)
	if err != nil {
		return Doodle{}, err
	}
	return Doodle{
		ID:         p.ID,
		Image:      image,
		Artist:     p.Artist,
		Parent:     p.Parent,
		Root:       p.Root,
		TailLength: p.TailLength,
		InGame:     p.InGame,
		CreatedAt:  p.CreatedAt,
	}, nil
}

func NewGamePayload(game Game) GamePayload {
	players := game.Players
	if players == nil {
		players = []string{}
	}
	return GamePayload{
		ID:        game.ID,
		GameCode:  game.GameCode,
		Creator:   game.Creator,
		Players:   players,
		Round:     game.Round,
		TimeLimit: game.TimeLimit,
	}
}

func (p GamePayload) Game() Game {
	return Game{
		ID:        p.ID,
		GameCode:  p.GameCode,
		Creator:   p.Creator,
		Players:   p.Players,
		Round:     p.Round,
		TimeLimit: p.TimeLimit,
	}.Clone()
}
