package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"profitpulse/domain"
	"profitpulse/repository"
)

// PaymentPlanner answers the question the amortization schedule cannot: what
// fixed payment clears a balance in a given number of months.
type PaymentPlanner struct {
	cache  repository.Store
	logger *logrus.Logger
}

func NewPaymentPlanner(cache repository.Store, logger *logrus.Logger) *PaymentPlanner {
	return &PaymentPlanner{cache: cache, logger: logger}
}

// RequiredPayment computes the annuity payment for the input. Results are
// cached by input; cache failures are logged and never fail the call.
func (p *PaymentPlanner) RequiredPayment(
	ctx context.Context,
	input domain.RequiredPaymentInput,
) (domain.RequiredPaymentResult, error) {

	if input.Balance <= 0 {
		return domain.RequiredPaymentResult{}, errors.New("invalid balance")
	}
	if input.Balance > MaxDebtAmount {
		return domain.RequiredPaymentResult{}, fmt.Errorf("balance exceeds the maximum of %.2f", MaxDebtAmount)
	}
	if input.InterestRate < 0 {
		return domain.RequiredPaymentResult{}, errors.New("invalid interest rate")
	}
	if input.InterestRate > MaxInterestRate {
		return domain.RequiredPaymentResult{}, fmt.Errorf("interest rate exceeds the maximum of %.2f%%", MaxInterestRate)
	}
	if input.Months < MinTermMonths {
		return domain.RequiredPaymentResult{}, errors.New("invalid term")
	}
	if input.Months > MaxTermMonths {
		return domain.RequiredPaymentResult{}, fmt.Errorf("term exceeds the maximum of %d months", MaxTermMonths)
	}

	key := cacheKey(input)
	if raw, err := p.cache.Get(ctx, key); err == nil {
		var cached domain.RequiredPaymentResult
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		p.logger.WithError(err).Warn("required payment cache read failed")
	}

	var payment float64
	if input.InterestRate == 0 {
		payment = input.Balance / float64(input.Months)
	} else {
		monthlyRate := (input.InterestRate / 100) / 12
		n := float64(input.Months)
		payment = input.Balance * (monthlyRate / (1 - math.Pow(1+monthlyRate, -n)))
	}

	total := payment * float64(input.Months)
	result := domain.RequiredPaymentResult{
		Months:         input.Months,
		MonthlyPayment: roundTo2Decimals(payment),
		TotalPayment:   roundTo2Decimals(total),
		TotalInterest:  roundTo2Decimals(total - input.Balance),
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := p.cache.Set(ctx, key, string(raw)); err != nil {
			p.logger.WithError(err).Warn("required payment cache write failed")
		}
	}

	return result, nil
}

// MinimumViablePayment is the smallest whole-cent payment that exceeds the
// first period's interest. Anything at or below it never reduces the balance.
func MinimumViablePayment(debt domain.Debt) float64 {
	interest := debt.MonthlyInterest()
	if math.IsNaN(interest) || math.IsInf(interest, 0) {
		return interest
	}
	return decimal.NewFromFloat(interest).Truncate(2).Add(decimal.New(1, -2)).InexactFloat64()
}

func cacheKey(input domain.RequiredPaymentInput) string {
	return fmt.Sprintf("required-payment:%.2f:%.4f:%d", input.Balance, input.InterestRate, input.Months)
}
