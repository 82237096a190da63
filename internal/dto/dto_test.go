package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func validChallenge() ChallengeRequest {
	return ChallengeRequest{
		Title:            "Two Sum",
		Description:      "Find the pair",
		ProblemStatement: "Given numbers, return indices",
		TestCases:        []TestCaseRequest{{Input: "[1,2] 3", ExpectedOutput: "[0,1]"}},
		Difficulty:       2,
		BaseXPReward:     100,
		BonusCoins:       0,
	}
}

func TestLoginRequestRules(t *testing.T) {
	validate := NewValidator()

	require.NoError(t, validate.Struct(LoginRequest{StudentID: "2024-001", Password: "secret"}))

	err := validate.Struct(LoginRequest{StudentID: strings.Repeat("9", 51), Password: "12345"})
	require.Error(t, err)

	details := ValidationDetails(err)
	require.Len(t, details, 2)
	require.Equal(t, "studentId", details[0].Field)
	require.Equal(t, "studentId is too long", details[0].Message)
	require.Equal(t, "password", details[1].Field)
	require.Equal(t, "min", details[1].Rule)
}

func TestRegisterRequestRequiresMatchingPasswords(t *testing.T) {
	validate := NewValidator()
	request := RegisterRequest{
		Name:            "Ana",
		StudentID:       "2024-002",
		Password:        "secret1",
		ConfirmPassword: "secret2",
	}

	details := ValidationDetails(validate.Struct(request))
	require.Len(t, details, 1)
	require.Equal(t, "confirmPassword", details[0].Field)
	require.Equal(t, "Passwords do not match", details[0].Message)

	request.ConfirmPassword = "secret1"
	require.NoError(t, validate.Struct(request))
	require.Empty(t, request.ToInput().Email)

	request.Email = "not-an-email"
	require.Error(t, validate.Struct(request))
}

func TestChallengeRequestRules(t *testing.T) {
	validate := NewValidator()
	require.NoError(t, validate.Struct(validChallenge()))

	noCases := validChallenge()
	noCases.TestCases = nil
	details := ValidationDetails(validate.Struct(noCases))
	require.Len(t, details, 1)
	require.Equal(t, "testCases", details[0].Field)

	emptyInput := validChallenge()
	emptyInput.TestCases = []TestCaseRequest{{Input: ""}}
	details = ValidationDetails(validate.Struct(emptyInput))
	require.Len(t, details, 1)
	require.Equal(t, "testCases[0].input", details[0].Field)

	badDifficulty := validChallenge()
	badDifficulty.Difficulty = 6
	badDifficulty.BaseXPReward = -1
	details = ValidationDetails(validate.Struct(badDifficulty))
	require.Len(t, details, 2)
}

func TestChallengeRequestToInput(t *testing.T) {
	request := validChallenge()
	request.Title = "  Two Sum  "
	request.IsActive = true

	input := request.ToInput()
	require.Equal(t, "Two Sum", *input.Title)
	require.Nil(t, input.EvaluationPrompt)
	require.True(t, *input.IsActive)
	require.Len(t, input.TestCases, 1)
	require.Equal(t, "[0,1]", input.TestCases[0].ExpectedOutput)
}

func TestShopItemRequestRules(t *testing.T) {
	validate := NewValidator()
	item := ShopItemRequest{Name: "Sticker", Description: "Laptop sticker", CoinPrice: 1, MinLevel: 1}
	require.NoError(t, validate.Struct(item), "stock may be null")

	item.Stock = intPtr(0)
	require.NoError(t, validate.Struct(item))

	item.Stock = intPtr(-1)
	item.MinLevel = 61
	item.ImageURL = "not a url"
	item.CoinPrice = 0
	require.Len(t, ValidationDetails(validate.Struct(item)), 4)
}

func TestGrantCoinsAndReviewRules(t *testing.T) {
	validate := NewValidator()

	require.NoError(t, validate.Struct(GrantCoinsRequest{Amount: 1, Reason: "Helping classmates"}))
	require.Error(t, validate.Struct(GrantCoinsRequest{Amount: 0, Reason: "x"}))
	require.Error(t, validate.Struct(GrantCoinsRequest{Amount: 5, Reason: strings.Repeat("r", 201)}))

	require.NoError(t, validate.Struct(ReviewRequest{ExplanationScore: 100, BonusXP: 500, BonusCoins: 100}))
	require.Error(t, validate.Struct(ReviewRequest{ExplanationScore: 101}))
	require.Error(t, validate.Struct(ReviewRequest{ExplanationScore: 50, BonusXP: 501}))

	input := ReviewRequest{ExplanationScore: 80, BonusCoins: 10}.ToInput()
	require.Nil(t, input.BonusXP)
	require.Equal(t, 10, *input.BonusCoins)
}

func TestNavigateRequestRequiresIndexForSelect(t *testing.T) {
	validate := NewValidator()

	require.NoError(t, validate.Struct(NavigateRequest{Action: NavigateNext}))
	require.NoError(t, validate.Struct(NavigateRequest{Action: NavigateSelect, Index: intPtr(0)}))
	require.Error(t, validate.Struct(NavigateRequest{Action: NavigateSelect}))
	require.Error(t, validate.Struct(NavigateRequest{Action: "jump"}))
}

func TestValidationDetailsIgnoresOtherErrors(t *testing.T) {
	require.Nil(t, ValidationDetails(nil))
	require.Nil(t, ValidationDetails(errTest("boom")))
}

type errTest string

func (e errTest) Error() string { return string(e) }
