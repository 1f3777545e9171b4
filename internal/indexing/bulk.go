package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/domain"
)

// ErrNoPostLoader is returned by IndexPostWithComments when the indexer was
// built without a post source.
var ErrNoPostLoader = errors.New("indexer has no post loader")

// BulkResult summarizes bulk requests against one alias.
type BulkResult struct {
	Index    string
	Indexed  int
	Failures []BulkItemFailure
}

// Err returns a *BulkPartialFailure when any item failed.
func (r *BulkResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &BulkPartialFailure{Index: r.Index, Failures: r.Failures}
}

type bulkMeta struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Routing string `json:"routing,omitempty"`
}

type bulkResponse struct {
	Errors bool                          `json:"errors"`
	Items  []map[string]bulkResponseItem `json:"items"`
}

type bulkResponseItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// BulkIndex writes docs into index in chunks of ChunkSize. Rejected items
// are collected in the result. A chunk the engine rejects as a whole, such
// as a 429 or 5xx answer, records every document it carried as a failure
// and the remaining chunks are still sent. Only transport and encoding
// errors stop the load; chunks already sent stay committed.
func (i *Indexer) BulkIndex(ctx context.Context, index string, docs []document.Document) (*BulkResult, error) {
	defer i.observe(OpBulkIndex, time.Now())

	result := &BulkResult{Index: index}
	for start := 0; start < len(docs); start += i.settings.ChunkSize {
		end := min(start+i.settings.ChunkSize, len(docs))

		if err := i.bulkChunk(ctx, index, docs[start:end], result); err != nil {
			i.metrics.RecordBulk(result.Indexed, len(result.Failures))
			return result, err
		}
	}

	i.metrics.RecordBulk(result.Indexed, len(result.Failures))
	return result, nil
}

func (i *Indexer) bulkChunk(ctx context.Context, index string, docs []document.Document, result *BulkResult) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	sent := make([]string, 0, len(docs))

	for _, doc := range docs {
		fields, err := document.Fields(doc)
		if err != nil {
			result.Failures = append(result.Failures, BulkItemFailure{
				DocID: doc.ID(), Type: "serialization", Reason: err.Error(),
			})
			continue
		}

		meta := map[string]bulkMeta{
			"index": {Index: index, ID: doc.ID(), Routing: doc.Routing()},
		}
		if err = enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk meta for %s: %w", doc.ID(), err)
		}
		if err = enc.Encode(fields); err != nil {
			return fmt.Errorf("encode bulk document %s: %w", doc.ID(), err)
		}
		sent = append(sent, doc.ID())
	}

	if buf.Len() == 0 {
		return nil
	}

	client := i.client()
	res, err := client.Bulk(
		bytes.NewReader(buf.Bytes()),
		client.Bulk.WithContext(ctx),
		client.Bulk.WithIndex(index),
	)
	if err != nil {
		return fmt.Errorf("bulk request to %s: %w", index, err)
	}
	defer res.Body.Close()

	if resErr := responseError(res, OpBulkIndex, index, ""); resErr != nil {
		var rejected *ResponseError
		if !errors.As(resErr, &rejected) {
			return resErr
		}
		i.log.Warn("Bulk chunk rejected",
			logger.String("index", index),
			logger.Int("status", rejected.Status),
			logger.Int("documents", len(sent)),
			logger.Error(resErr),
		)
		for _, id := range sent {
			result.Failures = append(result.Failures, BulkItemFailure{
				DocID: id, Status: rejected.Status, Type: rejected.Type, Reason: rejected.Reason,
			})
		}
		return nil
	}

	var parsed bulkResponse
	if err = json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode bulk response from %s: %w", index, err)
	}

	for _, entry := range parsed.Items {
		for _, item := range entry {
			if item.Error == nil && item.Status < 300 {
				result.Indexed++
				continue
			}
			failure := BulkItemFailure{DocID: item.ID, Status: item.Status}
			if item.Error != nil {
				failure.Type = item.Error.Type
				failure.Reason = item.Error.Reason
			}
			result.Failures = append(result.Failures, failure)
		}
	}
	return nil
}

// IndexPostWithComments indexes a post and its fully expanded comment tree
// into every active alias with one bulk load per alias. Malformed comments
// are skipped, and rejected items or chunks are logged without failing the
// call. A transport error on one alias does not stop the others; the
// errors are returned together once every alias was tried.
func (i *Indexer) IndexPostWithComments(ctx context.Context, postID string) error {
	defer i.observe(OpIndexPostWithComments, time.Now())

	if i.posts == nil {
		return ErrNoPostLoader
	}

	aliases, err := i.activeAliases(ctx, OpIndexPostWithComments)
	if err != nil || len(aliases) == 0 {
		return err
	}

	post, comments, err := i.posts.PostWithComments(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post %s: %w", postID, err)
	}

	docs := i.serializePostTree(post, comments)
	if len(docs) == 0 {
		return nil
	}

	var errs []error
	for _, alias := range aliases {
		result, bulkErr := i.BulkIndex(ctx, alias, docs)
		if bulkErr != nil {
			i.log.Error("Bulk load failed",
				logger.String("alias", alias),
				logger.String("post_id", postID),
				logger.Int("indexed", result.Indexed),
				logger.Error(bulkErr),
			)
			errs = append(errs, bulkErr)
			continue
		}

		if failure := result.Err(); failure != nil {
			i.log.Error("Bulk load partially failed",
				logger.String("alias", alias),
				logger.String("post_id", postID),
				logger.Int("indexed", result.Indexed),
				logger.Int("failed", len(result.Failures)),
				logger.Error(failure),
			)
			continue
		}

		i.log.Debug("Indexed post with comments",
			logger.String("alias", alias),
			logger.String("post_id", postID),
			logger.Int("documents", result.Indexed),
		)
	}

	return errors.Join(errs...)
}

func (i *Indexer) serializePostTree(post *domain.Post, comments []*domain.Comment) []document.Document {
	docs := make([]document.Document, 0, len(comments)+1)

	postDoc, err := document.SerializePost(post)
	if err != nil {
		i.log.Error("Skipping malformed post", logger.Error(err))
		return nil
	}
	docs = append(docs, postDoc)

	for _, comment := range comments {
		commentDoc, serErr := document.SerializeCommentOf(post, comment)
		if serErr != nil {
			i.log.Error("Skipping malformed comment",
				logger.String("post_id", post.ID),
				logger.Error(serErr),
			)
			continue
		}
		docs = append(docs, commentDoc)
	}

	return docs
}
