package matching

import "ashare-backtest/pkg/types"

// FeeSchedule is the A-share commission/transfer-fee/stamp-duty structure
// applied to every fill. All rates are plain fractions (0.00025 == 2.5bps).
type FeeSchedule struct {
	CommissionRate  float64
	MinCommission   types.Money
	TransferFeeRate float64
	StampDutyRate   float64
}

// DefaultFeeSchedule returns the rates specified for the default engine
// configuration.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		CommissionRate:  0.00025,
		MinCommission:   types.NewMoney(5.00),
		TransferFeeRate: 0.00001,
		StampDutyRate:   0.0005,
	}
}

// Fees is the breakdown of a single fill's transaction costs.
type Fees struct {
	Commission  types.Money
	TransferFee types.Money
	StampDuty   types.Money
}

// Total sums the three components.
func (f Fees) Total() types.Money {
	return f.Commission.Add(f.TransferFee).Add(f.StampDuty)
}

// Compute derives the fee breakdown for a fill of the given notional
// amount (exec_price * fill_volume). Stamp duty applies to SELL only.
func (fs FeeSchedule) Compute(amount types.Money, dir types.Direction) Fees {
	commission := types.MaxMoney(amount.Mul(fs.CommissionRate), fs.MinCommission)
	transfer := amount.Mul(fs.TransferFeeRate)

	var stampDuty types.Money
	if dir == types.Sell {
		stampDuty = amount.Mul(fs.StampDutyRate)
	}

	return Fees{Commission: commission, TransferFee: transfer, StampDuty: stampDuty}
}
