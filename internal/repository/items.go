package repository

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ItemString reads a string attribute, returning "" when absent.
func ItemString(item Item, name string) string {
	if av, ok := item[name].(*types.AttributeValueMemberS); ok {
		return av.Value
	}
	return ""
}

// ItemVersion reads the optimistic-lock version counter of a raw item.
func ItemVersion(item Item) (int, bool) {
	av, ok := item["Version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(av.Value)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ItemKey reads the primary key pair of a raw item.
func ItemKey(item Item) Key {
	return Key{PK: ItemString(item, "PK"), SK: ItemString(item, "SK")}
}
