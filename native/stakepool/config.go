package stakepool

// MaxValidatorsDefault bounds a ValidatorList's size unless Initialize is
// given a non-zero maxValidators.
const MaxValidatorsDefault = 2_950

// MaxFeeIncreaseNumerator/Denominator cap how much a single SetFee call may
// raise the epoch/withdrawal fee relative to its current value, protecting
// depositors from a manager front-running an unannounced fee hike.
const (
	MaxFeeIncreaseNumerator   = 1
	MaxFeeIncreaseDenominator = 10
)

// MinimumDelegationLamports is the smallest stake amount IncreaseValidatorStake
// will act on, avoiding dust stake accounts that can never be economically
// deactivated.
const MinimumDelegationLamports = 1_000_000

// MinimumReserveLamports is the balance the pool's reserve stake account
// must retain after an IncreaseValidatorStake or WithdrawSol call.
const MinimumReserveLamports = 1_000_000

func (f Fee) validate() error {
	if f.Denominator == 0 {
		return nil
	}
	if f.Numerator > f.Denominator {
		return ErrInvalidFee
	}
	return nil
}

// checkFeeIncrease reports whether raising the fee from cur to next exceeds
// the maximum allowed single-step increase.
func checkFeeIncrease(cur, next Fee) error {
	if err := next.validate(); err != nil {
		return err
	}
	if cur.Denominator == 0 || cur.Numerator == 0 {
		return nil
	}
	// next/next.Denominator - cur/cur.Denominator <= Max/MaxDenominator
	// cross-multiplied to stay in integer arithmetic.
	lhs := (next.Numerator*cur.Denominator - cur.Numerator*next.Denominator) * MaxFeeIncreaseDenominator
	rhs := MaxFeeIncreaseNumerator * cur.Denominator * next.Denominator
	if next.Numerator*cur.Denominator < cur.Numerator*next.Denominator {
		// next is a decrease; always allowed.
		return nil
	}
	if lhs > rhs {
		return ErrFeeIncreaseTooLarge
	}
	return nil
}
