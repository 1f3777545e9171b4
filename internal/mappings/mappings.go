// Package mappings defines the settings and field mapping of the global
// search index.
package mappings

// MappingVersion is stored in the index _meta. Bump major for breaking
// changes (field type changes, removals), minor for additions.
const MappingVersion = "1.0.0"

// Settings returns the index settings, including the analyzers used by the
// text fields.
func Settings() map[string]any {
	return map[string]any{
		"number_of_shards":   1,
		"number_of_replicas": 1,
		"analysis": map[string]any{
			"analyzer": map[string]any{
				"folding": map[string]any{
					"type":      "custom",
					"tokenizer": "standard",
					"filter":    []string{"lowercase", "asciifolding"},
				},
				"trigram": map[string]any{
					"type":      "custom",
					"tokenizer": "standard",
					"filter":    []string{"lowercase", "shingle"},
				},
			},
		},
	}
}

// Mapping returns the field mapping shared by every object type.
// Content files are children of their course through resource_relations.
func Mapping() map[string]any {
	properties := map[string]any{
		"object_type": keyword(),
		"id":          long(),
	}

	for _, group := range []map[string]any{
		forumProperties(),
		profileProperties(),
		catalogProperties(),
		contentFileProperties(),
	} {
		for field, def := range group {
			properties[field] = def
		}
	}

	return map[string]any{
		"_meta": map[string]any{
			"mapping_version": MappingVersion,
		},
		"dynamic":    false,
		"properties": properties,
	}
}

// IndexBody returns the body of an index creation request. With
// skipMapping only the settings are sent.
func IndexBody(skipMapping bool) map[string]any {
	body := map[string]any{
		"settings": Settings(),
	}
	if !skipMapping {
		body["mappings"] = Mapping()
	}
	return body
}

func forumProperties() map[string]any {
	return map[string]any{
		"author_id":           keyword(),
		"author_name":         foldedText(),
		"author_headline":     foldedText(),
		"author_avatar_small": keyword(),
		"channel_name":        keyword(),
		"channel_title":       foldedText(),
		"channel_type":        keyword(),
		"text":                foldedText(),
		"plain_text":          foldedText(),
		"post_id":             keyword(),
		"post_title":          foldedText(),
		"post_slug":           keyword(),
		"post_type":           keyword(),
		"post_link_url":       keyword(),
		"post_link_image":     keyword(),
		"comment_id":          keyword(),
		"parent_comment_id":   keyword(),
		"score":               long(),
		"num_comments":        long(),
		"created":             date(),
		"removed":             boolean(),
		"deleted":             boolean(),
		"parent_post_removed": boolean(),
	}
}

func profileProperties() map[string]any {
	return map[string]any{
		"author_bio":                foldedText(),
		"author_avatar_medium":      keyword(),
		"author_channel_membership": keyword(),
	}
}

func catalogProperties() map[string]any {
	return map[string]any{
		"title":             foldedText(),
		"short_description": foldedText(),
		"full_description":  foldedText(),
		"image_src":         keyword(),
		"url":               keyword(),
		"published":         boolean(),
		"featured":          boolean(),
		"last_modified":     date(),
		"topics":            keyword(),
		"offered_by":        keyword(),
		"course_id":         keyword(),
		"platform":          keyword(),
		"program_type":      keyword(),
		"program_name":      keyword(),
		"program_id":        keyword(),
		"location":          keyword(),
		"author":            keyword(),
		"privacy_level":     keyword(),
		"list_type":         keyword(),
		"video_id":          keyword(),
		"duration":          keyword(),
		"transcript":        foldedText(),
		"runs": map[string]any{
			"type": "nested",
			"properties": map[string]any{
				"id":           long(),
				"run_id":       keyword(),
				"title":        foldedText(),
				"semester":     keyword(),
				"year":         integer(),
				"level":        keyword(),
				"availability": keyword(),
				"language":     keyword(),
				"start_date":   date(),
				"end_date":     date(),
				"instructors":  foldedText(),
				"published":    boolean(),
				"prices": map[string]any{
					"type": "nested",
					"properties": map[string]any{
						"price": map[string]any{"type": "scaled_float", "scaling_factor": 100},
						"mode":  keyword(),
					},
				},
			},
		},
		"items": map[string]any{
			"type": "nested",
			"properties": map[string]any{
				"object_type": keyword(),
				"object_id":   long(),
				"position":    integer(),
			},
		},
	}
}

func contentFileProperties() map[string]any {
	return map[string]any{
		"key":          keyword(),
		"uid":          keyword(),
		"content":      foldedText(),
		"short_url":    keyword(),
		"file_type":    keyword(),
		"content_type": keyword(),
		"run_id":       keyword(),
		"run_title":    foldedText(),
		"semester":     keyword(),
		"year":         integer(),
		"resource_relations": map[string]any{
			"type": "join",
			"relations": map[string]any{
				"course": "resourcefile",
			},
		},
	}
}

func keyword() map[string]any { return map[string]any{"type": "keyword"} }
func long() map[string]any    { return map[string]any{"type": "long"} }
func integer() map[string]any { return map[string]any{"type": "integer"} }
func date() map[string]any    { return map[string]any{"type": "date"} }
func boolean() map[string]any { return map[string]any{"type": "boolean"} }

func foldedText() map[string]any {
	return map[string]any{
		"type":     "text",
		"analyzer": "folding",
		"fields": map[string]any{
			"trigram": map[string]any{"type": "text", "analyzer": "trigram"},
		},
	}
}
