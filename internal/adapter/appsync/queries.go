package appsync

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
)

// operation describes the GraphQL query serving one report kind.
type operation struct {
	name  string // operation name, e.g. LastPostsByFacilityAndDate
	field string // response field holding the item connection
	model string // filter input type prefix
	items []string
}

var operations = map[domain.Kind]operation{
	domain.KindCatchCount: {
		name:  "LastPostsByFacilityAndDate",
		field: "lastPostsByFacilityAndDate",
		model: "LastPost",
		items: append(append([]string{
			"id", "date", "month", "facility", "sentence", "weather", "waterTemp", "tide", "visitors",
		}, fishFields()...), "images", "createdAt", "updatedAt", "__typename"),
	},
	domain.KindFieldCondition: {
		name:  "FirstPostsByFacilityAndDate",
		field: "firstPostsByFacilityAndDate",
		model: "FirstPost",
		items: []string{
			"id", "date", "facility", "sentence", "weather", "temp", "waterTemp", "windDirection",
			"windSpeed", "tide", "highTide", "lowTide", "warning", "advisory", "images",
			"createdAt", "updatedAt", "__typename",
		},
	},
	domain.KindFishingReport: {
		name:  "MiddlePostsByFacilityAndDate",
		field: "middlePostsByFacilityAndDate",
		model: "MiddlePost",
		items: []string{
			"id", "date", "time", "facility", "sentence", "weather", "images",
			"createdAt", "updatedAt", "__typename",
		},
	},
}

func fishFields() []string {
	attrs := []string{"Name", "MinSize", "MaxSize", "Unit", "Count", "Place"}
	out := make([]string, 0, domain.MaxFishSlots*len(attrs))
	for i := 1; i <= domain.MaxFishSlots; i++ {
		for _, a := range attrs {
			out = append(out, fmt.Sprintf("fish%d%s", i, a))
		}
	}
	return out
}

// query renders the GraphQL document for op.
func (op operation) query() string {
	var b strings.Builder
	fmt.Fprintf(&b, "query %s($facility: String!, $date: ModelStringKeyConditionInput, "+
		"$sortDirection: ModelSortDirection, $filter: Model%sFilterInput, $limit: Int, $nextToken: String) {\n",
		op.name, op.model)
	fmt.Fprintf(&b, "  %s(\n", op.field)
	for _, arg := range []string{"facility", "date", "sortDirection", "filter", "limit", "nextToken"} {
		fmt.Fprintf(&b, "    %s: $%s\n", arg, arg)
	}
	b.WriteString("  ) {\n    items {\n")
	for _, f := range op.items {
		fmt.Fprintf(&b, "      %s\n", f)
	}
	b.WriteString("    }\n    nextToken\n    __typename\n  }\n}\n")
	return b.String()
}
