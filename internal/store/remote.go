package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RemoteStore talks to the store service over HTTP.
type RemoteStore struct {
	baseURL string
	client  *http.Client
}

func NewRemoteStore(baseURL string, timeout time.Duration) *RemoteStore {
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *RemoteStore) CreateDoodle(ctx context.Context, doodle *Doodle) error {
	var created DoodlePayload
	if err := s.do(ctx, "create doodle", http.MethodPost, "/api/doodles", NewDoodlePayload(*doodle), &created); err != nil {
		return err
	}
	doodle.ID = created.ID
	doodle.CreatedAt = created.CreatedAt
	return nil
}

func (s *RemoteStore) FetchDoodle(ctx context.Context, id string) (Doodle, error) {
	var payload DoodlePayload
	if err := s.do(ctx, "fetch doodle", http.MethodGet, "/api/doodles/"+url.PathEscape(id), nil, &payload); err != nil {
		return Doodle{}, err
	}
	return payload.Doodle()
}

func (s *RemoteStore) UpdateDoodle(ctx context.Context, doodle Doodle) error {
	return s.do(ctx, "update doodle", http.MethodPut, "/api/doodles/"+url.PathEscape(doodle.ID), NewDoodlePayload(doodle), nil)
}

func (s *RemoteStore) DeleteDoodle(ctx context.Context, id string) error {
	return s.do(ctx, "delete doodle", http.MethodDelete, "/api/doodles/"+url.PathEscape(id), nil, nil)
}

func (s *RemoteStore) QueryDoodles(ctx context.Context, query DoodleQuery) ([]Doodle, error) {
	params := url.Values{}
	if query.Root != "" {
		params.Set("root", query.Root)
	}
	if query.Parent != "" {
		params.Set("parent", query.Parent)
	}
	if query.Artist != "" {
		params.Set("artist", query.Artist)
	}
	if query.InGame != nil {
		params.Set("in_game", strconv.FormatBool(*query.InGame))
	}
	path := "/api/doodles"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var body struct {
		Doodles []DoodlePayload `json:"doodles"`
	}
	if err := s.do(ctx, "query doodles", http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	list := make([]Doodle, 0, len(body.Doodles))
	for _, payload := range body.Doodles {
		doodle, err := payload.Doodle()
		if err != nil {
			return nil, fmt.Errorf("decode doodle %s: %w", payload.ID, err)
		}
		list = append(list, doodle)
	}
	return list, nil
}

func (s *RemoteStore) CreateGame(ctx context.Context, game *Game) error {
	var created GamePayload
	if err := s.do(ctx, "create game", http.MethodPost, "/api/games", NewGamePayload(*game), &created); err != nil {
		return err
	}
	game.ID = created.ID
	return nil
}

func (s *RemoteStore) FetchGame(ctx context.Context, id string) (Game, error) {
	var payload GamePayload
	if err := s.do(ctx, "fetch game", http.MethodGet, "/api/games/"+url.PathEscape(id), nil, &payload); err != nil {
		return Game{}, err
	}
	return payload.Game(), nil
}

func (s *RemoteStore) FindGameByCode(ctx context.Context, code string) (Game, error) {
	var body struct {
		Games []GamePayload `json:"games"`
	}
	path := "/api/games?code=" + url.QueryEscape(code)
	if err := s.do(ctx, "find game", http.MethodGet, path, nil, &body); err != nil {
		return Game{}, err
	}
	if len(body.Games) == 0 {
		return Game{}, ErrNotFound
	}
	return body.Games[0].Game(), nil
}

func (s *RemoteStore) UpdateGame(ctx context.Context, game Game) error {
	return s.do(ctx, "update game", http.MethodPut, "/api/games/"+url.PathEscape(game.ID), NewGamePayload(game), nil)
}

func (s *RemoteStore) DeleteGame(ctx context.Context, id string) error {
	return s.do(ctx, "delete game", http.MethodDelete, "/api/games/"+url.PathEscape(id), nil, nil)
}

func (s *RemoteStore) do(ctx context.Context, op, method, path string, payload any, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return transient(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return transient(op, errors.New(readErrorMessage(resp)))
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s: %s", op, readErrorMessage(resp))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return transient(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func readErrorMessage(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return resp.Status
}
