package weather

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NumericFields lists the fact_weather measures used by the analytics below, in column order.
var NumericFields = []string{
	"temp_c",
	"feels_like_c",
	"humidity_pct",
	"pressure_hpa",
	"wind_speed_ms",
	"clouds_pct",
}

var (
	// ErrInsufficientData is returned when there are too few rows for a fit.
	ErrInsufficientData = errors.New("not enough observations")
	// ErrDegenerateFit is returned when the predictors are collinear or constant,
	// which is always the case for back-filled rows copied from a single reading.
	ErrDegenerateFit = errors.New("predictors are collinear or constant")
)

func (o Observation) measures() []float64 {
	return []float64{o.TemperatureC, o.FeelsLikeC, o.HumidityPct, o.PressureHpa, o.WindSpeedMS, o.CloudsPct}
}

// FieldStats holds descriptive statistics of one measure. StdDev is the sample
// standard deviation and is 0 for a single row. Quartiles are empirical.
type FieldStats struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std"`
}

// HourlyMean is the mean temperature of one UTC clock hour.
type HourlyMean struct {
	Hour         time.Time `json:"hour"`
	TemperatureC float64   `json:"tempC"`
}

// CitySummary groups statistics per city.
type CitySummary struct {
	City   string                `json:"city"`
	Count  int                   `json:"count"`
	Fields map[string]FieldStats `json:"fields"`
	Hourly []HourlyMean          `json:"hourlyTemperature"`
}

// Summary is the overview a dashboard renders for a filtered observation set.
type Summary struct {
	Total           int            `json:"total"`
	AvgTemperatureC float64        `json:"avgTempC"`
	AvgHumidityPct  float64        `json:"avgHumidityPct"`
	Cities          []CitySummary  `json:"cities"`
	Conditions      map[string]int `json:"conditions"`
}

// Summarize computes overview, per-city statistics, the weather_main distribution
// and hourly mean temperature. Cities are sorted by name.
func Summarize(obs []Observation) Summary {
	sum := Summary{
		Total:      len(obs),
		Conditions: make(map[string]int),
	}
	if len(obs) == 0 {
		return sum
	}

	temps := make([]float64, 0, len(obs))
	hums := make([]float64, 0, len(obs))
	byCity := make(map[string][]Observation)
	for _, o := range obs {
		temps = append(temps, o.TemperatureC)
		hums = append(hums, o.HumidityPct)
		sum.Conditions[string(o.Main)]++
		byCity[o.City] = append(byCity[o.City], o)
	}
	sum.AvgTemperatureC = stat.Mean(temps, nil)
	sum.AvgHumidityPct = stat.Mean(hums, nil)

	names := make([]string, 0, len(byCity))
	for name := range byCity {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rows := byCity[name]
		cols := columns(rows)
		cs := CitySummary{
			City:   name,
			Count:  len(rows),
			Fields: make(map[string]FieldStats, len(NumericFields)),
			Hourly: hourlyTemperature(rows),
		}
		for i, field := range NumericFields {
			cs.Fields[field] = describe(cols[i])
		}
		sum.Cities = append(sum.Cities, cs)
	}
	return sum
}

func columns(obs []Observation) [][]float64 {
	cols := make([][]float64, len(NumericFields))
	for i := range cols {
		cols[i] = make([]float64, 0, len(obs))
	}
	for _, o := range obs {
		for i, v := range o.measures() {
			cols[i] = append(cols[i], v)
		}
	}
	return cols
}

func describe(xs []float64) FieldStats {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	fs := FieldStats{
		Mean:   stat.Mean(sorted, nil),
		Min:    sorted[0],
		Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
	if len(xs) > 1 {
		fs.StdDev = stat.StdDev(xs, nil)
	}
	return fs
}

// hourlyTemperature resamples temperatures into a time series of hourly means.
func hourlyTemperature(obs []Observation) []HourlyMean {
	buckets := make(map[time.Time][]float64)
	for _, o := range obs {
		h := o.ObservedAt.UTC().Truncate(time.Hour)
		buckets[h] = append(buckets[h], o.TemperatureC)
	}
	out := make([]HourlyMean, 0, len(buckets))
	for h, xs := range buckets {
		out = append(out, HourlyMean{Hour: h, TemperatureC: stat.Mean(xs, nil)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out
}

// Correlation is a Pearson correlation matrix over NumericFields.
// A nil cell means the coefficient is undefined (a constant column).
type Correlation struct {
	Fields []string     `json:"fields"`
	Matrix [][]*float64 `json:"matrix"`
}

// CorrelationMatrix computes pairwise Pearson coefficients of the numeric measures.
func CorrelationMatrix(obs []Observation) Correlation {
	cols := columns(obs)
	n := len(NumericFields)
	c := Correlation{
		Fields: append([]string(nil), NumericFields...),
		Matrix: make([][]*float64, n),
	}
	for i := 0; i < n; i++ {
		c.Matrix[i] = make([]*float64, n)
		for j := 0; j < n; j++ {
			if len(obs) < 2 {
				continue
			}
			r := stat.Correlation(cols[i], cols[j], nil)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				continue
			}
			c.Matrix[i][j] = &r
		}
	}
	return c
}

// HumidityFit is an ordinary least squares fit of
// humidity_pct = Intercept + TempCoef*temp_c + FeelsLikeCoef*feels_like_c.
type HumidityFit struct {
	Intercept     float64 `json:"intercept"`
	TempCoef      float64 `json:"tempCoef"`
	FeelsLikeCoef float64 `json:"feelsLikeCoef"`
	RSquared      float64 `json:"rSquared"`
	N             int     `json:"n"`
}

// Predict returns the fitted humidity for the given temperatures.
func (f HumidityFit) Predict(tempC, feelsLikeC float64) float64 {
	return f.Intercept + f.TempCoef*tempC + f.FeelsLikeCoef*feelsLikeC
}

// FitHumidity fits humidity as a linear function of temperature and feels-like temperature.
func FitHumidity(obs []Observation) (HumidityFit, error) {
	n := len(obs)
	if n < 3 {
		return HumidityFit{}, fmt.Errorf("%w: need at least 3, have %d", ErrInsufficientData, n)
	}

	cols := columns(obs)
	temp, feels := cols[0], cols[1]
	if stat.StdDev(temp, nil) == 0 || stat.StdDev(feels, nil) == 0 {
		return HumidityFit{}, fmt.Errorf("%w: constant predictor", ErrDegenerateFit)
	}
	if r := stat.Correlation(temp, feels, nil); math.Abs(r) > 1-1e-12 {
		return HumidityFit{}, fmt.Errorf("%w: temp_c and feels_like_c are collinear", ErrDegenerateFit)
	}

	x := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i, o := range obs {
		x.Set(i, 0, 1)
		x.Set(i, 1, o.TemperatureC)
		x.Set(i, 2, o.FeelsLikeC)
		y.SetVec(i, o.HumidityPct)
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return HumidityFit{}, fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	ys := mat.Col(nil, 0, y)
	mean := stat.Mean(ys, nil)
	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		d := ys[i] - fitted.AtVec(i)
		ssRes += d * d
		m := ys[i] - mean
		ssTot += m * m
	}
	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	return HumidityFit{
		Intercept:     beta.AtVec(0),
		TempCoef:      beta.AtVec(1),
		FeelsLikeCoef: beta.AtVec(2),
		RSquared:      r2,
		N:             n,
	}, nil
}
