package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
)

// State is the rebuild state derived from which aliases exist.
type State string

const (
	StateNoIndex  State = "NO_INDEX"
	StateBuilding State = "BUILDING"
	StateSwapping State = "SWAPPING"
	StateLive     State = "LIVE"
)

// Status describes the aliases and the backing indices behind them.
type Status struct {
	State          State    `json:"state"`
	DefaultAlias   string   `json:"default_alias"`
	DefaultIndices []string `json:"default_indices"`
	ReindexAlias   string   `json:"reindex_alias"`
	ReindexIndices []string `json:"reindex_indices"`
}

// CreateBackingIndex creates a fresh backing index with the full mapping and
// points the reindex alias at it, dropping any stale reindex alias first.
// Writes from then on fan out to both the live and the new index.
func (i *Indexer) CreateBackingIndex(ctx context.Context) (string, error) {
	client, err := i.conn.Client(ctx, false)
	if err != nil {
		return "", err
	}

	backingIndex := i.conn.MakeBackingIndexName()
	if err = i.ClearAndCreateIndex(ctx, backingIndex, false); err != nil {
		return "", err
	}

	reindexAlias := i.conn.ReindexAliasName()
	exists, err := i.conn.AliasExists(ctx, reindexAlias)
	if err != nil {
		return "", err
	}
	if exists {
		res, delErr := client.Indices.DeleteAlias(
			[]string{"_all"},
			[]string{reindexAlias},
			client.Indices.DeleteAlias.WithContext(ctx),
		)
		if delErr != nil {
			return "", fmt.Errorf("delete stale alias %s: %w", reindexAlias, delErr)
		}
		if resErr := closeWithError(res, "delete_alias", reindexAlias, ""); resErr != nil {
			return "", resErr
		}
		i.log.Warn("Removed stale reindex alias", logger.String("alias", reindexAlias))
	}

	res, err := client.Indices.PutAlias(
		[]string{backingIndex},
		reindexAlias,
		client.Indices.PutAlias.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("put alias %s: %w", reindexAlias, err)
	}
	if resErr := closeWithError(res, "put_alias", backingIndex, ""); resErr != nil {
		return "", resErr
	}

	i.log.Info("Created backing index",
		logger.String("index", backingIndex),
		logger.String("alias", reindexAlias),
	)
	return backingIndex, nil
}

type aliasAction map[string]aliasTarget

type aliasTarget struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}

// SwitchIndices moves the default alias to backingIndex in a single
// _aliases request, so readers never see zero or two indices behind it.
// The old backing index is then deleted and the reindex alias removed.
func (i *Indexer) SwitchIndices(ctx context.Context, backingIndex string) error {
	client, err := i.conn.Client(ctx, false)
	if err != nil {
		return err
	}

	defaultAlias := i.conn.DefaultAliasName()
	defaultExists, err := i.conn.AliasExists(ctx, defaultAlias)
	if err != nil {
		return err
	}

	var oldIndices []string
	actions := make([]aliasAction, 0, 2)
	if defaultExists {
		oldIndices, err = i.conn.AliasIndices(ctx, defaultAlias)
		if err != nil {
			return err
		}
		for _, old := range oldIndices {
			actions = append(actions, aliasAction{"remove": {Index: old, Alias: defaultAlias}})
		}
	}
	actions = append(actions, aliasAction{"add": {Index: backingIndex, Alias: defaultAlias}})

	payload, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return fmt.Errorf("marshal alias actions: %w", err)
	}

	i.log.Info("Switching default alias",
		logger.String("state", string(StateSwapping)),
		logger.String("alias", defaultAlias),
		logger.String("index", backingIndex),
		logger.Strings("old_indices", oldIndices),
	)

	res, err := client.Indices.UpdateAliases(
		bytes.NewReader(payload),
		client.Indices.UpdateAliases.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("update aliases: %w", err)
	}
	if resErr := closeWithError(res, "update_aliases", defaultAlias, ""); resErr != nil {
		return resErr
	}

	if err = i.RefreshIndex(ctx, backingIndex); err != nil {
		return err
	}

	for _, old := range oldIndices {
		if old == backingIndex {
			continue
		}
		i.deleteOldIndex(ctx, old)
	}

	reindexAlias := i.conn.ReindexAliasName()
	res, err = client.Indices.DeleteAlias(
		[]string{backingIndex},
		[]string{reindexAlias},
		client.Indices.DeleteAlias.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete alias %s: %w", reindexAlias, err)
	}
	if resErr := closeWithError(res, "delete_alias", reindexAlias, ""); resErr != nil {
		if !IsNotFound(resErr) {
			return resErr
		}
		i.log.Warn("Reindex alias already removed", logger.String("alias", reindexAlias))
	}

	i.log.Info("Default alias switched",
		logger.String("state", string(StateLive)),
		logger.String("alias", defaultAlias),
		logger.String("index", backingIndex),
	)
	return nil
}

// deleteOldIndex removes a superseded backing index. A missing index is not
// an error and other failures only leave an orphan behind.
func (i *Indexer) deleteOldIndex(ctx context.Context, index string) {
	client := i.client()
	res, err := client.Indices.Delete([]string{index}, client.Indices.Delete.WithContext(ctx))
	if err != nil {
		i.log.Error("Failed to delete old backing index", logger.String("index", index), logger.Error(err))
		return
	}

	resErr := closeWithError(res, "delete_index", index, "")
	switch {
	case resErr == nil:
		i.log.Info("Deleted old backing index", logger.String("index", index))
	case IsNotFound(resErr):
		i.log.Warn("Old backing index already gone", logger.String("index", index))
	default:
		i.log.Error("Failed to delete old backing index", logger.String("index", index), logger.Error(resErr))
	}
}

// RefreshIndex makes recent writes to index visible to search.
func (i *Indexer) RefreshIndex(ctx context.Context, index string) error {
	client := i.client()
	res, err := client.Indices.Refresh(
		client.Indices.Refresh.WithIndex(index),
		client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", index, err)
	}
	return closeWithError(res, "refresh", index, "")
}

// Status reports the lifecycle state from the aliases that exist.
func (i *Indexer) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		DefaultAlias: i.conn.DefaultAliasName(),
		ReindexAlias: i.conn.ReindexAliasName(),
	}

	var err error
	if status.DefaultIndices, err = i.conn.AliasIndices(ctx, status.DefaultAlias); err != nil {
		return nil, err
	}
	if status.ReindexIndices, err = i.conn.AliasIndices(ctx, status.ReindexAlias); err != nil {
		return nil, err
	}

	switch {
	case len(status.ReindexIndices) > 0:
		status.State = StateBuilding
	case len(status.DefaultIndices) > 0:
		status.State = StateLive
	default:
		status.State = StateNoIndex
	}
	return status, nil
}

// CountDocuments returns the number of documents behind alias.
func (i *Indexer) CountDocuments(ctx context.Context, alias string) (int, error) {
	client := i.client()
	res, err := client.Count(
		client.Count.WithIndex(alias),
		client.Count.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", alias, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resErr := responseError(res, "count", alias, ""); resErr != nil {
		return 0, resErr
	}

	var body struct {
		Count int `json:"count"`
	}
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode count for %s: %w", alias, err)
	}
	return body.Count, nil
}
