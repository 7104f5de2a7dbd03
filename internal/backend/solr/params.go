package solr

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Aman-CERP/filesearch/internal/search"
)

// Highlighting parameters sent when a query asks for snippets.
const (
	highlightFragSize = "200"
	highlightPre      = "<u>"
	highlightPost     = "</u>"
)

// BuildParams turns q into select handler parameters. The query is
// validated first, so an invalid query never reaches the network.
func BuildParams(q search.Query) (url.Values, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q = q.WithDefaults()

	v := url.Values{}
	v.Set("q", q.Text)
	if q.Filter != "" {
		v.Add("fq", q.Filter)
	}
	if clause := RecordFilter(q.RecordIDs); clause != "" {
		v.Add("fq", clause)
	}
	v.Set("fl", strings.Join(q.Fields, ","))

	if q.Highlight.Enabled {
		v.Set("hl", "on")
		v.Set("hl.fragsize", highlightFragSize)
		v.Set("hl.simple.pre", highlightPre)
		v.Set("hl.simple.post", highlightPost)
		v.Set("hl.fl", search.FieldContent)
		if q.Highlight.Text != "" {
			v.Set("hl.q", "_text_:"+q.Highlight.Text)
		}
	}

	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	v.Set("start", strconv.Itoa(q.Start))
	v.Set("rows", strconv.Itoa(q.Rows))
	v.Set("wt", "json")
	return v, nil
}

// RecordFilter returns "pw_page_id:1 OR pw_page_id:2 ..." for ids, or ""
// when ids is empty.
func RecordFilter(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = search.FieldRecordID + ":" + strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " OR ")
}

// extractParams returns the update/extract parameters for one unit.
func extractParams(recordID int64, key, name string, fields map[string]string) url.Values {
	v := url.Values{}
	v.Set("literal."+search.FieldRecordID, strconv.FormatInt(recordID, 10))
	v.Set("literal."+search.FieldID, key)
	for field, value := range fields {
		v.Set("literal."+field, value)
	}
	v.Set("literal."+search.FieldName, name)
	v.Set("commit", "false")
	v.Set("stored", "true")
	v.Set("wt", "json")
	return v
}
