// Package esfake is an in-memory Elasticsearch cluster served through an
// http.RoundTripper. It understands the document, alias and index requests
// the indexer issues, records every request, and can inject failures.
package esfake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	es "github.com/elastic/go-elasticsearch/v8"
)

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// JSON decodes the request body into a generic map.
func (r Request) JSON() map[string]any {
	out := make(map[string]any)
	_ = json.Unmarshal(r.Body, &out)
	return out
}

// Doc is a stored document.
type Doc struct {
	Source  map[string]any
	Routing string
	Version int
}

type index struct {
	body map[string]any
	docs map[string]*Doc
}

type fault struct {
	method    string
	contains  string
	status    int
	body      string
	remaining int
}

// Cluster is the fake. The zero value is not usable; call New.
type Cluster struct {
	mu         sync.Mutex
	indices    map[string]*index
	aliases    map[string][]string
	requests   []Request
	faults     []*fault
	contention []*fault
	rejectBulk map[string]string
}

// New returns an empty cluster.
func New() *Cluster {
	return &Cluster{
		indices:    make(map[string]*index),
		aliases:    make(map[string][]string),
		rejectBulk: make(map[string]string),
	}
}

// NewClient returns a go-elasticsearch client talking to c.
func (c *Cluster) NewClient() (*es.Client, error) {
	return es.NewClient(es.Config{
		Addresses: []string{"http://esfake:9200"},
		Transport: c,
	})
}

// Fail makes the next times requests whose method matches and whose path
// contains pathContains answer with status and body. times <= 0 fails
// forever.
func (c *Cluster) Fail(method, pathContains string, status int, body string, times int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = append(c.faults, &fault{
		method: method, contains: pathContains, status: status, body: body, remaining: times,
	})
}

// Contend makes the next times update attempts on paths containing
// pathContains lose a version race. An update sent with retry_on_conflict
// n absorbs up to n lost races before answering 409.
func (c *Cluster) Contend(pathContains string, times int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contention = append(c.contention, &fault{
		method: http.MethodPost, contains: pathContains, remaining: times,
	})
}

// RejectBulkItem makes bulk items with docID fail with errType.
func (c *Cluster) RejectBulkItem(docID, errType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejectBulk[docID] = errType
}

// CreateIndex creates an empty index.
func (c *Cluster) CreateIndex(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indices[name] = &index{body: map[string]any{}, docs: make(map[string]*Doc)}
}

// PutAlias points alias at index.
func (c *Cluster) PutAlias(indexName, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addAlias(c.aliases, indexName, alias)
}

// PutDoc stores a document directly.
func (c *Cluster) PutDoc(indexName, id string, source map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indices[indexName].docs[id] = &Doc{Source: source, Version: 1}
}

// IndexExists reports whether the concrete index exists.
func (c *Cluster) IndexExists(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.indices[name]
	return ok
}

// IndexBody returns the body the index was created with.
func (c *Cluster) IndexBody(name string) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.indices[name]; ok {
		return idx.body
	}
	return nil
}

// AliasTargets returns the indices alias points to.
func (c *Cluster) AliasTargets(alias string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.aliases[alias]...)
}

// Doc returns a stored document by concrete index or alias.
func (c *Cluster) Doc(name, id string) (*Doc, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, idx := range c.resolve(name) {
		if doc, ok := c.indices[idx].docs[id]; ok {
			return doc, true
		}
	}
	return nil, false
}

// DocCount returns the number of documents behind name.
func (c *Cluster) DocCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, idx := range c.resolve(name) {
		n += len(c.indices[idx].docs)
	}
	return n
}

// Requests returns every recorded request.
func (c *Cluster) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Request(nil), c.requests...)
}

// RequestsTo returns recorded requests with method whose path ends with
// suffix. An empty method matches any.
func (c *Cluster) RequestsTo(method, suffix string) []Request {
	var out []Request
	for _, r := range c.Requests() {
		if (method == "" || r.Method == method) && strings.HasSuffix(r.Path, suffix) {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets recorded requests.
func (c *Cluster) ResetRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = nil
}

// RoundTrip implements http.RoundTripper.
func (c *Cluster) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := req.URL.Path
	c.requests = append(c.requests, Request{
		Method: req.Method, Path: path, Query: req.URL.Query(), Body: body,
	})

	if f := c.matchFault(req.Method, path); f != nil {
		return respond(f.status, f.body), nil
	}

	if c.loseRace(req.Method, path, req.URL.Query()) {
		return respond(http.StatusConflict, errorBody(http.StatusConflict,
			"version_conflict_engine_exception", "version conflict, current version is newer")), nil
	}

	status, payload := c.handle(req.Method, path, body)
	if req.Method == http.MethodHead {
		return respond(status, ""), nil
	}
	return respond(status, payload), nil
}

func (c *Cluster) matchFault(method, path string) *fault {
	for i, f := range c.faults {
		if f.method != method || !strings.Contains(path, f.contains) {
			continue
		}
		if f.remaining > 0 {
			f.remaining--
			if f.remaining == 0 {
				c.faults = append(c.faults[:i], c.faults[i+1:]...)
			}
		}
		return f
	}
	return nil
}

// loseRace consumes one attempt per allowed retry of an update and reports
// whether every attempt lost.
func (c *Cluster) loseRace(method, path string, query url.Values) bool {
	if !strings.Contains(path, "/_update/") {
		return false
	}
	for i, f := range c.contention {
		if f.method != method || !strings.Contains(path, f.contains) {
			continue
		}
		retries, _ := strconv.Atoi(query.Get("retry_on_conflict"))
		attempts := retries + 1
		if f.remaining < attempts {
			c.contention = append(c.contention[:i], c.contention[i+1:]...)
			return false
		}
		f.remaining -= attempts
		if f.remaining == 0 {
			c.contention = append(c.contention[:i], c.contention[i+1:]...)
		}
		return true
	}
	return false
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header: http.Header{
			"X-Elastic-Product": []string{"Elasticsearch"},
			"Content-Type":      []string{"application/json"},
		},
		Body: io.NopCloser(bytes.NewBufferString(body)),
	}
}

func errorBody(status int, errType, reason string) string {
	return mustJSON(map[string]any{
		"error":  map[string]any{"type": errType, "reason": reason},
		"status": status,
	})
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(raw)
}

func (c *Cluster) handle(method, path string, body []byte) (int, string) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		return http.StatusOK, `{"version":{"number":"8.19.0"},"tagline":"You Know, for Search"}`
	}

	switch segments[0] {
	case "_aliases":
		return c.updateAliases(body)
	case "_alias":
		if len(segments) == 2 {
			return c.getAlias(segments[1])
		}
	case "_bulk":
		return c.bulk("", body)
	}

	name := segments[0]
	if len(segments) == 1 {
		switch method {
		case http.MethodPut:
			return c.createIndex(name, body)
		case http.MethodDelete:
			return c.deleteIndex(name)
		case http.MethodHead, http.MethodGet:
			if len(c.resolve(name)) == 0 {
				return http.StatusNotFound, errorBody(404, "index_not_found_exception", name)
			}
			return http.StatusOK, "{}"
		}
	}

	id := ""
	if len(segments) > 2 {
		id = strings.Join(segments[2:], "/")
	}

	switch segments[1] {
	case "_alias", "_aliases":
		if id != "" {
			return c.indexAlias(method, name, id)
		}
	case "_create":
		return c.createDoc(name, id, body)
	case "_update":
		return c.updateDoc(name, id, body)
	case "_doc":
		return c.docOp(method, name, id, body)
	case "_update_by_query":
		return c.updateByQuery(name, body)
	case "_bulk":
		return c.bulk(name, body)
	case "_refresh":
		if len(c.resolve(name)) == 0 {
			return http.StatusNotFound, errorBody(404, "index_not_found_exception", name)
		}
		return http.StatusOK, `{"_shards":{"total":1,"successful":1,"failed":0}}`
	case "_count":
		return c.count(name, body)
	}

	return http.StatusBadRequest, errorBody(400, "unsupported_operation", method+" "+path)
}

// resolve maps an index, alias or comma list to concrete indices.
func (c *Cluster) resolve(name string) []string {
	var out []string
	for _, part := range strings.Split(name, ",") {
		if targets, ok := c.aliases[part]; ok {
			out = append(out, targets...)
			continue
		}
		if _, ok := c.indices[part]; ok {
			out = append(out, part)
		}
	}
	return out
}

func (c *Cluster) writeTarget(name string) (*index, string, bool) {
	targets := c.resolve(name)
	if len(targets) != 1 {
		return nil, "", false
	}
	return c.indices[targets[0]], targets[0], true
}

func (c *Cluster) createIndex(name string, body []byte) (int, string) {
	if _, ok := c.indices[name]; ok {
		return http.StatusBadRequest, errorBody(400, "resource_already_exists_exception", name)
	}
	parsed := make(map[string]any)
	if len(body) > 0 {
		_ = json.Unmarshal(body, &parsed)
	}
	c.indices[name] = &index{body: parsed, docs: make(map[string]*Doc)}
	return http.StatusOK, mustJSON(map[string]any{"acknowledged": true, "index": name})
}

func (c *Cluster) deleteIndex(name string) (int, string) {
	for _, part := range strings.Split(name, ",") {
		if _, ok := c.indices[part]; !ok {
			return http.StatusNotFound, errorBody(404, "index_not_found_exception", part)
		}
	}
	for _, part := range strings.Split(name, ",") {
		delete(c.indices, part)
		for alias := range c.aliases {
			c.removeAlias(c.aliases, part, alias)
		}
	}
	return http.StatusOK, `{"acknowledged":true}`
}

func (c *Cluster) getAlias(alias string) (int, string) {
	targets, ok := c.aliases[alias]
	if !ok {
		return http.StatusNotFound, mustJSON(map[string]any{
			"error": fmt.Sprintf("alias [%s] missing", alias), "status": 404,
		})
	}
	out := make(map[string]any, len(targets))
	for _, idx := range targets {
		out[idx] = map[string]any{"aliases": map[string]any{alias: map[string]any{}}}
	}
	return http.StatusOK, mustJSON(out)
}

func (c *Cluster) indexAlias(method, indexName, alias string) (int, string) {
	if indexName == "_all" && method == http.MethodDelete {
		removed := false
		for _, target := range append([]string(nil), c.aliases[alias]...) {
			removed = c.removeAlias(c.aliases, target, alias) || removed
		}
		if !removed {
			return http.StatusNotFound, errorBody(404, "aliases_not_found_exception", alias)
		}
		return http.StatusOK, `{"acknowledged":true}`
	}
	if _, ok := c.indices[indexName]; !ok {
		return http.StatusNotFound, errorBody(404, "index_not_found_exception", indexName)
	}
	switch method {
	case http.MethodPut, http.MethodPost:
		c.addAlias(c.aliases, indexName, alias)
		return http.StatusOK, `{"acknowledged":true}`
	case http.MethodDelete:
		if !c.removeAlias(c.aliases, indexName, alias) {
			return http.StatusNotFound, errorBody(404, "aliases_not_found_exception", alias)
		}
		return http.StatusOK, `{"acknowledged":true}`
	}
	return http.StatusMethodNotAllowed, errorBody(405, "method_not_allowed", method)
}

func (c *Cluster) addAlias(aliases map[string][]string, indexName, alias string) {
	for _, existing := range aliases[alias] {
		if existing == indexName {
			return
		}
	}
	aliases[alias] = append(aliases[alias], indexName)
	sort.Strings(aliases[alias])
}

func (c *Cluster) removeAlias(aliases map[string][]string, indexName, alias string) bool {
	targets := aliases[alias]
	for i, existing := range targets {
		if existing != indexName {
			continue
		}
		targets = append(targets[:i:i], targets[i+1:]...)
		if len(targets) == 0 {
			delete(aliases, alias)
		} else {
			aliases[alias] = targets
		}
		return true
	}
	return false
}

func (c *Cluster) updateAliases(body []byte) (int, string) {
	var req struct {
		Actions []map[string]struct {
			Index string `json:"index"`
			Alias string `json:"alias"`
		} `json:"actions"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, errorBody(400, "parse_exception", err.Error())
	}

	staged := make(map[string][]string, len(c.aliases))
	for alias, targets := range c.aliases {
		staged[alias] = append([]string(nil), targets...)
	}

	for _, action := range req.Actions {
		for op, args := range action {
			if _, ok := c.indices[args.Index]; !ok {
				return http.StatusNotFound, errorBody(404, "index_not_found_exception", args.Index)
			}
			switch op {
			case "add":
				c.addAlias(staged, args.Index, args.Alias)
			case "remove":
				if !c.removeAlias(staged, args.Index, args.Alias) {
					return http.StatusNotFound, errorBody(404, "aliases_not_found_exception", args.Alias)
				}
			default:
				return http.StatusBadRequest, errorBody(400, "illegal_argument_exception", op)
			}
		}
	}

	c.aliases = staged
	return http.StatusOK, `{"acknowledged":true}`
}

func (c *Cluster) createDoc(name, id string, body []byte) (int, string) {
	idx, concrete, ok := c.writeTarget(name)
	if !ok {
		return http.StatusNotFound, errorBody(404, "index_not_found_exception", name)
	}
	if _, exists := idx.docs[id]; exists {
		return http.StatusConflict, errorBody(409, "version_conflict_engine_exception",
			fmt.Sprintf("[%s]: version conflict, document already exists", id))
	}
	source := make(map[string]any)
	if err := json.Unmarshal(body, &source); err != nil {
		return http.StatusBadRequest, errorBody(400, "mapper_parsing_exception", err.Error())
	}
	idx.docs[id] = &Doc{Source: source, Version: 1}
	return http.StatusCreated, mustJSON(map[string]any{
		"_index": concrete, "_id": id, "_version": 1, "result": "created",
	})
}

func (c *Cluster) docOp(method, name, id string, body []byte) (int, string) {
	switch method {
	case http.MethodGet:
		for _, concrete := range c.resolve(name) {
			if doc, ok := c.indices[concrete].docs[id]; ok {
				return http.StatusOK, mustJSON(map[string]any{
					"_index": concrete, "_id": id, "found": true, "_version": doc.Version, "_source": doc.Source,
				})
			}
		}
		return http.StatusNotFound, mustJSON(map[string]any{"_id": id, "found": false})
	case http.MethodDelete:
		idx, concrete, ok := c.writeTarget(name)
		if !ok {
			return http.StatusNotFound, errorBody(404, "index_not_found_exception", name)
		}
		if _, exists := idx.docs[id]; !exists {
			return http.StatusNotFound, mustJSON(map[string]any{"_index": concrete, "_id": id, "result": "not_found"})
		}
		delete(idx.docs, id)
		return http.StatusOK, mustJSON(map[string]any{"_index": concrete, "_id": id, "result": "deleted"})
	case http.MethodPut, http.MethodPost:
		idx, concrete, ok := c.writeTarget(name)
		if !ok {
			return http.StatusNotFound, errorBody(404, "index_not_found_exception", name)
		}
		source := make(map[string]any)
		_ = json.Unmarshal(body, &source)
		version := 1
		if existing, exists := idx.docs[id]; exists {
			version = existing.Version + 1
		}
		idx.docs[id] = &Doc{Source: source, Version: version}
		return http.StatusOK, mustJSON(map[string]any{"_index": concrete, "_id": id, "result": "updated"})
	}
	return http.StatusMethodNotAllowed, errorBody(405, "method_not_allowed", method)
}

var (
	incrementScript = regexp.MustCompile(`ctx\._source\.(\w+)\s*\+=\s*params\.(\w+)`)
	assignScript    = regexp.MustCompile(`ctx\._source\.(\w+)\s*=\s*params\.(\w+)`)
)

type script struct {
	Source string         `json:"source"`
	Lang   string         `json:"lang"`
	Params map[string]any `json:"params"`
}

func (s *script) apply(source map[string]any) error {
	if m := incrementScript.FindStringSubmatch(s.Source); m != nil {
		current, _ := source[m[1]].(float64)
		delta, ok := s.Params[m[2]].(float64)
		if !ok {
			return fmt.Errorf("param %s is not a number", m[2])
		}
		source[m[1]] = current + delta
		return nil
	}
	if m := assignScript.FindStringSubmatch(s.Source); m != nil {
		source[m[1]] = s.Params[m[2]]
		return nil
	}
	return fmt.Errorf("unsupported script %q", s.Source)
}

func (c *Cluster) updateDoc(name, id string, body []byte) (int, string) {
	idx, concrete, ok := c.writeTarget(name)
	if !ok {
		return http.StatusNotFound, errorBody(404, "index_not_found_exception", name)
	}

	var req struct {
		Doc    map[string]any `json:"doc"`
		Script *script        `json:"script"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, errorBody(400, "parse_exception", err.Error())
	}

	doc, exists := idx.docs[id]
	if !exists {
		return http.StatusNotFound, errorBody(404, "document_missing_exception",
			fmt.Sprintf("[%s]: document missing", id))
	}

	if req.Script != nil {
		if err := req.Script.apply(doc.Source); err != nil {
			return http.StatusBadRequest, errorBody(400, "script_exception", err.Error())
		}
	}
	for k, v := range req.Doc {
		doc.Source[k] = v
	}
	doc.Version++

	return http.StatusOK, mustJSON(map[string]any{
		"_index": concrete, "_id": id, "_version": doc.Version, "result": "updated",
	})
}

func (c *Cluster) updateByQuery(name string, body []byte) (int, string) {
	targets := c.resolve(name)
	if len(targets) == 0 {
		return http.StatusNotFound, errorBody(404, "index_not_found_exception", name)
	}

	var req struct {
		Query  map[string]any `json:"query"`
		Script *script        `json:"script"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, errorBody(400, "parse_exception", err.Error())
	}

	updated := 0
	for _, concrete := range targets {
		for _, doc := range c.indices[concrete].docs {
			if !matches(req.Query, doc.Source) {
				continue
			}
			if req.Script != nil {
				if err := req.Script.apply(doc.Source); err != nil {
					return http.StatusBadRequest, errorBody(400, "script_exception", err.Error())
				}
			}
			doc.Version++
			updated++
		}
	}

	return http.StatusOK, mustJSON(map[string]any{
		"total": updated, "updated": updated, "version_conflicts": 0, "failures": []any{},
	})
}

func (c *Cluster) count(name string, body []byte) (int, string) {
	targets := c.resolve(name)
	if len(targets) == 0 {
		return http.StatusNotFound, errorBody(404, "index_not_found_exception", name)
	}
	var req struct {
		Query map[string]any `json:"query"`
	}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &req)
	}
	n := 0
	for _, concrete := range targets {
		for _, doc := range c.indices[concrete].docs {
			if matches(req.Query, doc.Source) {
				n++
			}
		}
	}
	return http.StatusOK, mustJSON(map[string]any{"count": n})
}

func (c *Cluster) bulk(pathIndex string, body []byte) (int, string) {
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	items := make([]any, 0, len(lines)/2)
	hasErrors := false

	for i := 0; i < len(lines); i++ {
		var meta map[string]struct {
			Index   string `json:"_index"`
			ID      string `json:"_id"`
			Routing string `json:"routing"`
		}
		if err := json.Unmarshal([]byte(lines[i]), &meta); err != nil {
			return http.StatusBadRequest, errorBody(400, "parse_exception", err.Error())
		}

		for action, args := range meta {
			var source map[string]any
			if action != "delete" && i+1 < len(lines) {
				i++
				source = make(map[string]any)
				_ = json.Unmarshal([]byte(lines[i]), &source)
			}

			target := args.Index
			if target == "" {
				target = pathIndex
			}

			item := map[string]any{"_index": target, "_id": args.ID}
			status := c.bulkItem(action, target, args.ID, args.Routing, source, item)
			item["status"] = status
			if status >= http.StatusBadRequest {
				hasErrors = true
			}
			items = append(items, map[string]any{action: item})
		}
	}

	return http.StatusOK, mustJSON(map[string]any{"took": 1, "errors": hasErrors, "items": items})
}

func (c *Cluster) bulkItem(action, target, id, routing string, source, item map[string]any) int {
	if errType, rejected := c.rejectBulk[id]; rejected {
		item["error"] = map[string]any{"type": errType, "reason": "rejected by test"}
		return http.StatusBadRequest
	}

	idx, concrete, ok := c.writeTarget(target)
	if !ok {
		item["error"] = map[string]any{"type": "index_not_found_exception", "reason": target}
		return http.StatusNotFound
	}
	item["_index"] = concrete

	switch action {
	case "index":
		status := http.StatusCreated
		version := 1
		if existing, exists := idx.docs[id]; exists {
			status = http.StatusOK
			version = existing.Version + 1
		}
		idx.docs[id] = &Doc{Source: source, Routing: routing, Version: version}
		return status
	case "create":
		if _, exists := idx.docs[id]; exists {
			item["error"] = map[string]any{"type": "version_conflict_engine_exception", "reason": id}
			return http.StatusConflict
		}
		idx.docs[id] = &Doc{Source: source, Routing: routing, Version: 1}
		return http.StatusCreated
	case "delete":
		if _, exists := idx.docs[id]; !exists {
			return http.StatusNotFound
		}
		delete(idx.docs, id)
		return http.StatusOK
	}

	item["error"] = map[string]any{"type": "illegal_argument_exception", "reason": action}
	return http.StatusBadRequest
}
