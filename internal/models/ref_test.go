package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChallengeRefAcceptsBareID(t *testing.T) {
	var ref ChallengeRef
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &ref))
	require.Equal(t, "abc", ref.ID())

	_, expanded := ref.Expanded()
	require.False(t, expanded)
}

func TestChallengeRefAcceptsExpandedObject(t *testing.T) {
	var ref ChallengeRef
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"c1","title":"Two Sum","difficulty":2}`), &ref))
	require.Equal(t, "c1", ref.ID())

	summary, expanded := ref.Expanded()
	require.True(t, expanded)
	require.Equal(t, "Two Sum", summary.Title)
	require.Equal(t, 2, summary.Difficulty)
	require.Equal(t, "c1", summary.ID)
}

func TestChallengeRefPrefersIDOverLegacyID(t *testing.T) {
	var ref ChallengeRef
	require.NoError(t, json.Unmarshal([]byte(`{"id":"new","_id":"old"}`), &ref))
	require.Equal(t, "new", ref.ID())
}

func TestChallengeRefRejectsNumbers(t *testing.T) {
	var ref ChallengeRef
	require.Error(t, json.Unmarshal([]byte(`42`), &ref))
}

func TestSubmissionDecodesBothReferenceShapes(t *testing.T) {
	payload := `[
		{"id":"s1","userId":"u1","challengeId":"c1","code":"x","status":"PENDING","createdAt":"2024-01-01T00:00:00Z"},
		{"id":"s2","userId":{"id":"u1","name":"Ana"},"challengeId":{"id":"c2","title":"FizzBuzz"},"code":"y","status":"PASSED","createdAt":"2024-01-01T00:00:00Z","evaluatedAt":"2024-01-02T00:00:00Z"}
	]`

	var submissions []Submission
	require.NoError(t, json.Unmarshal([]byte(payload), &submissions))
	require.Len(t, submissions, 2)

	require.Equal(t, "c1", submissions[0].Challenge.ID())
	require.Equal(t, "c2", submissions[1].Challenge.ID())
	require.Equal(t, "u1", submissions[1].User.ID())

	user, ok := submissions[1].User.Expanded()
	require.True(t, ok)
	require.Equal(t, "Ana", user.Name)

	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), submissions[0].RelevantAt())
	require.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), submissions[1].RelevantAt())
}

func TestItemRefExpandsShopItem(t *testing.T) {
	var purchase Purchase
	raw := `{"id":"p1","itemId":{"_id":"i1","name":"Sticker","coinPrice":10,"stock":null},"quantity":1,"totalCost":10,"redemptionCode":"ABC","createdAt":"2024-03-01T00:00:00Z"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &purchase))

	require.Equal(t, "i1", purchase.Item.ID())
	item, ok := purchase.Item.Expanded()
	require.True(t, ok)
	require.Equal(t, "Sticker", item.Name)
	require.Nil(t, item.Stock)
}

func TestChallengeRefMarshalRoundTripKeepsShape(t *testing.T) {
	bare, err := json.Marshal(ChallengeRefID("c9"))
	require.NoError(t, err)
	require.JSONEq(t, `"c9"`, string(bare))

	expanded, err := json.Marshal(ExpandedChallengeRef(ChallengeSummary{ID: "c9", Title: "Graphs"}))
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"c9","title":"Graphs"}`, string(expanded))
}

func TestTierForLevelBands(t *testing.T) {
	cases := map[int]Tier{
		0:  TierNewbie,
		10: TierNewbie,
		11: TierBeginner,
		30: TierIntermediate,
		45: TierExpert,
		60: TierMaster,
		99: TierMaster,
	}
	for level, want := range cases {
		require.Equal(t, want, TierForLevel(level), "level %d", level)
	}

	user := User{Level: 33}.WithTierDefaults()
	require.Equal(t, TierAdvanced, user.Tier)
	require.Equal(t, "#9932CC", user.TierColor)
}

func TestDifficultyLabels(t *testing.T) {
	require.Equal(t, "Very Easy", DifficultyLabel(1))
	require.Equal(t, "Very Hard", DifficultyLabel(5))
}
