package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/mappings"
	"github.com/MasterGowen/open-discussions/internal/metrics"
)

// Operation names, shared with the task names that invoke them.
const (
	OpCreateDocument           = "create_document"
	OpUpsertDocument           = "upsert_document"
	OpUpdatePartial            = "update_document_with_partial"
	OpIncrementField           = "increment_document_integer_field"
	OpUpdateFieldValuesByQuery = "update_field_values_by_query"
	OpDeleteDocument           = "delete_document"
	OpIndexPostWithComments    = "index_post_with_comments"
	OpBulkIndex                = "bulk_index"
	OpClearAndCreateIndex      = "clear_and_create_index"
)

// DefaultIncrementRetries is the retry_on_conflict sent with increments
// that do not set their own.
const DefaultIncrementRetries = 3

// DocOption adjusts a single-document request.
type DocOption func(*docOptions)

type docOptions struct {
	routing         string
	retryOnConflict int
}

// WithRouting routes the request to the shard of routing.
func WithRouting(routing string) DocOption {
	return func(o *docOptions) {
		o.routing = routing
	}
}

// WithRetryOnConflict lets the engine retry an update n times on a version
// conflict before reporting it.
func WithRetryOnConflict(n int) DocOption {
	return func(o *docOptions) {
		o.retryOnConflict = n
	}
}

// RoutingOf returns the routing opts set, or "".
func RoutingOf(opts ...DocOption) string {
	return applyDocOptions(opts).routing
}

func applyDocOptions(opts []DocOption) docOptions {
	var o docOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CreateDocument creates docID in every active alias. A document that
// already exists in the default alias is reported as a *ConflictError. The
// reindex alias may already hold the document from the rebuild's bulk
// load, so a conflict there alone counts as success.
func (i *Indexer) CreateDocument(
	ctx context.Context,
	docID string,
	objectType document.ObjectType,
	fields map[string]any,
	opts ...DocOption,
) error {
	defer i.observe(OpCreateDocument, time.Now())

	body, err := documentBody(objectType, fields)
	if err != nil {
		return err
	}

	aliases, err := i.activeAliases(ctx, OpCreateDocument)
	if err != nil {
		return err
	}

	client := i.client()
	o := applyDocOptions(opts)

	for _, alias := range aliases {
		reqOpts := []func(*esapi.CreateRequest){client.Create.WithContext(ctx)}
		if o.routing != "" {
			reqOpts = append(reqOpts, client.Create.WithRouting(o.routing))
		}

		res, reqErr := client.Create(alias, docID, bytes.NewReader(body), reqOpts...)
		if reqErr != nil {
			i.metrics.RecordOperation(OpCreateDocument, objectType.String(), metrics.OutcomeError)
			return fmt.Errorf("create %s in %s: %w", docID, alias, reqErr)
		}

		resErr := closeWithError(res, OpCreateDocument, alias, docID)
		if IsConflict(resErr) && alias == i.conn.ReindexAliasName() {
			i.metrics.RecordVersionConflicts(OpCreateDocument, 1)
			i.log.Debug("Document already loaded into reindex alias",
				logger.String("alias", alias),
				logger.String("doc_id", docID),
				logger.String("object_type", objectType.String()),
			)
			resErr = nil
		}
		if resErr != nil {
			i.metrics.RecordOperation(OpCreateDocument, objectType.String(), outcomeOf(resErr))
			return resErr
		}
		i.metrics.RecordOperation(OpCreateDocument, objectType.String(), metrics.OutcomeSuccess)
	}

	return nil
}

// UpsertDocument writes the full document, creating it when missing.
// Version conflicts are logged and dropped.
func (i *Indexer) UpsertDocument(
	ctx context.Context,
	docID string,
	objectType document.ObjectType,
	fields map[string]any,
	opts ...DocOption,
) error {
	defer i.observe(OpUpsertDocument, time.Now())

	docFields := withObjectType(fields, objectType)
	return i.updateEachAlias(ctx, OpUpsertDocument, docID, objectType, map[string]any{
		"doc":           docFields,
		"doc_as_upsert": true,
	}, applyDocOptions(opts))
}

// UpdateDocumentPartial merges fields into docID in every active alias.
// Version conflicts and missing documents are logged and dropped.
func (i *Indexer) UpdateDocumentPartial(
	ctx context.Context,
	docID string,
	fields map[string]any,
	objectType document.ObjectType,
	opts ...DocOption,
) error {
	defer i.observe(OpUpdatePartial, time.Now())

	return i.updateEachAlias(ctx, OpUpdatePartial, docID, objectType, map[string]any{
		"doc": fields,
	}, applyDocOptions(opts))
}

// IncrementIntegerField adds amount to an integer field with a server-side
// script, so concurrent increments compose in any order. The engine retries
// the script DefaultIncrementRetries times on a version conflict unless
// WithRetryOnConflict says otherwise. A conflict that survives the retries
// is logged and dropped per alias, like a missing document, so a
// redelivered task never applies the amount twice to an alias that already
// took it.
func (i *Indexer) IncrementIntegerField(
	ctx context.Context,
	docID string,
	field string,
	amount int,
	objectType document.ObjectType,
	opts ...DocOption,
) error {
	defer i.observe(OpIncrementField, time.Now())

	body := map[string]any{
		"script": map[string]any{
			"source": fmt.Sprintf("ctx._source.%s += params.incr_amount", field),
			"lang":   i.settings.ScriptLang,
			"params": map[string]any{
				"incr_amount": amount,
			},
		},
	}
	o := applyDocOptions(opts)
	if o.retryOnConflict <= 0 {
		o.retryOnConflict = DefaultIncrementRetries
	}
	return i.updateEachAlias(ctx, OpIncrementField, docID, objectType, body, o)
}

func (i *Indexer) updateEachAlias(
	ctx context.Context,
	operation string,
	docID string,
	objectType document.ObjectType,
	body map[string]any,
	o docOptions,
) error {
	if !objectType.Valid() {
		return fmt.Errorf("%s %s: unknown object type %q", operation, docID, objectType)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s body for %s: %w", operation, docID, err)
	}

	aliases, err := i.activeAliases(ctx, operation)
	if err != nil {
		return err
	}

	client := i.client()
	for _, alias := range aliases {
		reqOpts := []func(*esapi.UpdateRequest){client.Update.WithContext(ctx)}
		if o.routing != "" {
			reqOpts = append(reqOpts, client.Update.WithRouting(o.routing))
		}
		if o.retryOnConflict > 0 {
			reqOpts = append(reqOpts, client.Update.WithRetryOnConflict(o.retryOnConflict))
		}

		res, reqErr := client.Update(alias, docID, bytes.NewReader(payload), reqOpts...)
		if reqErr != nil {
			i.metrics.RecordOperation(operation, objectType.String(), metrics.OutcomeError)
			return fmt.Errorf("%s %s in %s: %w", operation, docID, alias, reqErr)
		}

		resErr := closeWithError(res, operation, alias, docID)
		i.metrics.RecordOperation(operation, objectType.String(), outcomeOf(resErr))

		switch {
		case resErr == nil:
		case IsConflict(resErr):
			i.metrics.RecordVersionConflicts(operation, 1)
			i.log.Error("Version conflict, dropping update",
				logger.String("operation", operation),
				logger.String("alias", alias),
				logger.String("doc_id", docID),
				logger.String("object_type", objectType.String()),
				logger.Error(resErr),
			)
		case IsNotFound(resErr):
			i.log.Warn("Document not indexed yet, dropping update",
				logger.String("operation", operation),
				logger.String("alias", alias),
				logger.String("doc_id", docID),
				logger.String("object_type", objectType.String()),
			)
		default:
			return resErr
		}
	}

	return nil
}

// UpdateFieldValuesByQuery assigns each field in fieldValues on every
// document matching query, one update-by-query per field and alias.
// query is a request body such as {"query": {...}}. Version conflicts are
// expected under concurrent writes; they are logged, not returned.
func (i *Indexer) UpdateFieldValuesByQuery(
	ctx context.Context,
	query map[string]any,
	fieldValues map[string]any,
	objectTypes []document.ObjectType,
) error {
	defer i.observe(OpUpdateFieldValuesByQuery, time.Now())

	for _, t := range objectTypes {
		if !t.Valid() {
			return fmt.Errorf("%s: unknown object type %q", OpUpdateFieldValuesByQuery, t)
		}
	}

	aliases, err := i.activeAliases(ctx, OpUpdateFieldValuesByQuery)
	if err != nil {
		return err
	}

	fields := make([]string, 0, len(fieldValues))
	for field := range fieldValues {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	typeLabel := objectTypesLabel(objectTypes)
	client := i.client()

	for _, alias := range aliases {
		for _, field := range fields {
			body := scopedQuery(query, objectTypes)
			body["script"] = map[string]any{
				"source": fmt.Sprintf("ctx._source.%s = params.new_value", field),
				"lang":   i.settings.ScriptLang,
				"params": map[string]any{
					"new_value": fieldValues[field],
				},
			}

			payload, marshalErr := json.Marshal(body)
			if marshalErr != nil {
				return fmt.Errorf("marshal update-by-query body: %w", marshalErr)
			}

			result, reqErr := i.updateByQuery(ctx, client, alias, payload)
			if reqErr != nil {
				i.metrics.RecordOperation(OpUpdateFieldValuesByQuery, typeLabel, outcomeOf(reqErr))
				return reqErr
			}
			i.metrics.RecordOperation(OpUpdateFieldValuesByQuery, typeLabel, metrics.OutcomeSuccess)

			if result.VersionConflicts > 0 {
				i.metrics.RecordVersionConflicts(OpUpdateFieldValuesByQuery, result.VersionConflicts)
				i.log.Error("Version conflicts during update by query",
					logger.String("alias", alias),
					logger.String("field", field),
					logger.Int("version_conflicts", result.VersionConflicts),
					logger.Int("updated", result.Updated),
				)
			}
		}
	}

	return nil
}

type updateByQueryResult struct {
	Total            int `json:"total"`
	Updated          int `json:"updated"`
	VersionConflicts int `json:"version_conflicts"`
}

func (i *Indexer) updateByQuery(ctx context.Context, client *es.Client, alias string, payload []byte) (*updateByQueryResult, error) {
	res, err := client.UpdateByQuery(
		[]string{alias},
		client.UpdateByQuery.WithContext(ctx),
		client.UpdateByQuery.WithBody(bytes.NewReader(payload)),
		client.UpdateByQuery.WithConflicts(i.settings.Conflicts),
	)
	if err != nil {
		return nil, fmt.Errorf("update by query in %s: %w", alias, err)
	}
	defer res.Body.Close()

	if resErr := responseError(res, OpUpdateFieldValuesByQuery, alias, ""); resErr != nil {
		return nil, resErr
	}

	var result updateByQueryResult
	if err = json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode update-by-query response from %s: %w", alias, err)
	}
	return &result, nil
}

// UpdateFieldForAllPostComments sets field on every comment of postID.
func (i *Indexer) UpdateFieldForAllPostComments(ctx context.Context, postID, field string, value any) error {
	return i.UpdateFieldValuesByQuery(ctx,
		PostCommentsQuery(postID),
		map[string]any{field: value},
		[]document.ObjectType{document.TypeComment},
	)
}

// DeleteDocument removes docID from every active alias. A document that is
// already gone counts as deleted.
func (i *Indexer) DeleteDocument(
	ctx context.Context,
	docID string,
	objectType document.ObjectType,
	opts ...DocOption,
) error {
	defer i.observe(OpDeleteDocument, time.Now())

	aliases, err := i.activeAliases(ctx, OpDeleteDocument)
	if err != nil {
		return err
	}

	client := i.client()
	o := applyDocOptions(opts)

	for _, alias := range aliases {
		reqOpts := []func(*esapi.DeleteRequest){client.Delete.WithContext(ctx)}
		if o.routing != "" {
			reqOpts = append(reqOpts, client.Delete.WithRouting(o.routing))
		}

		res, reqErr := client.Delete(alias, docID, reqOpts...)
		if reqErr != nil {
			i.metrics.RecordOperation(OpDeleteDocument, objectType.String(), metrics.OutcomeError)
			return fmt.Errorf("delete %s from %s: %w", docID, alias, reqErr)
		}

		resErr := closeWithError(res, OpDeleteDocument, alias, docID)
		i.metrics.RecordOperation(OpDeleteDocument, objectType.String(), outcomeOf(resErr))

		if resErr != nil && !IsNotFound(resErr) {
			return resErr
		}
		if resErr != nil {
			i.log.Debug("Document already absent",
				logger.String("alias", alias),
				logger.String("doc_id", docID),
				logger.String("object_type", objectType.String()),
			)
		}
	}

	return nil
}

// ClearAndCreateIndex deletes indexName if it exists and creates it again
// with the index settings and, unless skipMapping, the field mapping. It is
// only used for fresh backing indices.
func (i *Indexer) ClearAndCreateIndex(ctx context.Context, indexName string, skipMapping bool) error {
	defer i.observe(OpClearAndCreateIndex, time.Now())

	client := i.client()

	exists, err := i.indexExists(ctx, indexName)
	if err != nil {
		return err
	}
	if exists {
		res, delErr := client.Indices.Delete([]string{indexName}, client.Indices.Delete.WithContext(ctx))
		if delErr != nil {
			return fmt.Errorf("delete index %s: %w", indexName, delErr)
		}
		if resErr := closeWithError(res, OpClearAndCreateIndex, indexName, ""); resErr != nil {
			return resErr
		}
		i.log.Info("Deleted existing index", logger.String("index", indexName))
	}

	payload, err := json.Marshal(mappings.IndexBody(skipMapping))
	if err != nil {
		return fmt.Errorf("marshal index body: %w", err)
	}

	res, err := client.Indices.Create(
		indexName,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", indexName, err)
	}
	if resErr := closeWithError(res, OpClearAndCreateIndex, indexName, ""); resErr != nil {
		return resErr
	}

	i.log.Info("Created index",
		logger.String("index", indexName),
		logger.Bool("skip_mapping", skipMapping),
	)
	return nil
}

func (i *Indexer) indexExists(ctx context.Context, indexName string) (bool, error) {
	client := i.client()
	res, err := client.Indices.Exists([]string{indexName}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", indexName, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check index %s: unexpected status %s", indexName, res.Status())
	}
}

func (i *Indexer) client() *es.Client {
	// Writes address aliases explicitly, so the default alias is not
	// required to exist.
	client, _ := i.conn.Client(context.Background(), false)
	return client
}

func closeWithError(res *esapi.Response, operation, index, docID string) error {
	defer res.Body.Close()
	return responseError(res, operation, index, docID)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case IsConflict(err):
		return metrics.OutcomeConflict
	case IsNotFound(err):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

func documentBody(objectType document.ObjectType, fields map[string]any) ([]byte, error) {
	if !objectType.Valid() {
		return nil, fmt.Errorf("unknown object type %q", objectType)
	}
	body, err := json.Marshal(withObjectType(fields, objectType))
	if err != nil {
		return nil, fmt.Errorf("marshal %s document: %w", objectType, err)
	}
	return body, nil
}

func withObjectType(fields map[string]any, objectType document.ObjectType) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if _, ok := out["object_type"]; !ok {
		out["object_type"] = objectType.String()
	}
	return out
}

func objectTypesLabel(types []document.ObjectType) string {
	if len(types) == 1 {
		return types[0].String()
	}
	return "multiple"
}
