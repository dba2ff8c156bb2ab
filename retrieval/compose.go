// Copyright (c) Microsoft. All rights reserved.

package retrieval

import "strings"

// NoResults stands in for the context body when nothing was retrieved.
const NoResults = "No results found"

const guidance = "First review the retrieved context. If it does not answer the query, " +
	"call one of the available functions that might answer it. If no context is available, say so."

// Compose builds the augmented prompt for query from docs. The result depends
// only on its arguments.
func Compose(query string, docs []Document) string {
	var b strings.Builder
	b.WriteString("Retrieved Context:\n")
	if len(docs) == 0 {
		b.WriteString(NoResults)
	} else {
		for i, d := range docs {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(d.Content)
		}
	}
	b.WriteString("\n\nUser Query: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(guidance)
	return b.String()
}
