package dynamodb

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"

	appErrors "gatherly-backend/pkg/errors"
)

func TestUpdateConditionFailureOnMissingItem(t *testing.T) {
	ccf := &types.ConditionalCheckFailedException{}

	err := updateConditionFailure(ccf, "OFFER#o1", "METADATA")

	assert.True(t, appErrors.IsNotFound(err))
	assert.False(t, appErrors.IsVersionConflict(err))
}

func TestUpdateConditionFailureOnStaleVersion(t *testing.T) {
	ccf := &types.ConditionalCheckFailedException{
		Item: map[string]types.AttributeValue{
			"Version": &types.AttributeValueMemberN{Value: "3"},
		},
	}

	err := updateConditionFailure(ccf, "OFFER#o1", "METADATA")

	assert.True(t, appErrors.IsVersionConflict(err))
	assert.False(t, appErrors.IsNotFound(err))
}
