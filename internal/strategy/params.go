package strategy

// Params carries every tunable threshold of the rule engine.
// Zero values are not meaningful; start from DefaultParams.
type Params struct {
	// B1 also accepts a close above the Bollinger(51, 1.9) upper band with
	// less than 25% deviation from SMA51.
	B1BandBreakout bool `yaml:"b1_band_breakout"`

	B12Growth    float64 `yaml:"b12_growth"`
	B12Days      int     `yaml:"b12_days"`
	B12Deviation float64 `yaml:"b12_deviation"`
	B13Periods   []int   `yaml:"b13_periods"`

	StopFactor    float64 `yaml:"stop_factor"`
	StopATRPeriod int     `yaml:"stop_atr_period"`

	S9Threshold float64 `yaml:"s9_threshold"`
	// S17MinDays gates S17 on days since entry; 0 disables the gate.
	S17MinDays int `yaml:"s17_min_days"`

	EnergyLookbackMonths int `yaml:"energy_lookback_months"`
	EnergyWindow         int `yaml:"energy_window"`
	EnergyMinBars        int `yaml:"energy_min_bars"`
	E5HighWindow         int `yaml:"e5_high_window"`
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{
		B12Growth:            0.16,
		B12Days:              50,
		B12Deviation:         0.20,
		B13Periods:           []int{19, 60},
		StopFactor:           3.7,
		StopATRPeriod:        22,
		S9Threshold:          0.22,
		S17MinDays:           0,
		EnergyLookbackMonths: 24,
		EnergyWindow:         16,
		EnergyMinBars:        66,
		E5HighWindow:         250,
	}
}
