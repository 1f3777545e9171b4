package indexing

import "github.com/MasterGowen/open-discussions/internal/document"

// PostCommentsQuery matches every comment of postID.
func PostCommentsQuery(postID string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"match": map[string]any{"object_type": document.TypeComment.String()}},
					map[string]any{"match": map[string]any{"post_id": postID}},
				},
			},
		},
	}
}

// AuthorQuery matches every document written by username.
func AuthorQuery(username string) map[string]any {
	return matchQuery("author_id", username)
}

// ChannelQuery matches every document in the channel.
func ChannelQuery(channelName string) map[string]any {
	return matchQuery("channel_name", channelName)
}

func matchQuery(field string, value any) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"match": map[string]any{field: value},
		},
	}
}

// scopedQuery copies body and restricts its query to objectTypes.
func scopedQuery(body map[string]any, objectTypes []document.ObjectType) map[string]any {
	out := make(map[string]any, len(body)+1)
	for k, v := range body {
		out[k] = v
	}
	if len(objectTypes) == 0 {
		return out
	}

	filter := map[string]any{
		"terms": map[string]any{"object_type": document.Strings(objectTypes)},
	}

	scoped := map[string]any{"filter": []any{filter}}
	if query, ok := out["query"]; ok && query != nil {
		scoped["must"] = []any{query}
	}
	out["query"] = map[string]any{"bool": scoped}
	return out
}
