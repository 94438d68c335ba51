package devicemgmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DeviceNumberLength is the length of a generated device number:
// country(2) factory(3) agent(3) year(2) month(2) model(2) hardware(2) serial(7)
const DeviceNumberLength = 23

// MaxSerialNumber is the largest serial that fits the 7-digit serial field
const MaxSerialNumber = 9999999

// ErrInvalidBatchRange is returned when a batch's serial range is unusable
var ErrInvalidBatchRange = errors.New("invalid serial number range")

// NumberSpec holds the fields a device number is composed from
type NumberSpec struct {
	Country         string // Factory country code, e.g. "86"
	FactoryID       int64
	AgentCode       string
	ProductionDate  string // yyyy-MM-dd
	ModelType       string
	HardwareVersion string
}

// SpecFor builds the number spec of a batch produced by factory
func SpecFor(factory *Factory, batch *ProductionBatch) NumberSpec {
	return NumberSpec{
		Country:         factory.Country,
		FactoryID:       factory.ID,
		AgentCode:       batch.AgentCode,
		ProductionDate:  batch.ProductionDate,
		ModelType:       batch.ModelType,
		HardwareVersion: batch.HardwareVersion,
	}
}

// Prefix returns the 16-digit part shared by every number of the batch
func (s NumberSpec) Prefix() (string, error) {
	date := strings.TrimSpace(s.ProductionDate)
	if len(date) < 7 || date[4] != '-' {
		return "", fmt.Errorf("production date %q: want yyyy-MM-dd", s.ProductionDate)
	}

	fields := []struct {
		name  string
		value string
		width int
	}{
		{"country", s.Country, 2},
		{"factory", strconv.FormatInt(s.FactoryID, 10), 3},
		{"agent code", s.AgentCode, 3},
	}

	var b strings.Builder
	for _, f := range fields {
		part, err := pad(f.name, f.value, f.width)
		if err != nil {
			return "", err
		}
		b.WriteString(part)
	}

	year, month := date[2:4], date[5:7]
	if _, err := strconv.Atoi(year); err != nil {
		return "", fmt.Errorf("production date %q: bad year", s.ProductionDate)
	}
	if _, err := strconv.Atoi(month); err != nil {
		return "", fmt.Errorf("production date %q: bad month", s.ProductionDate)
	}
	b.WriteString(year)
	b.WriteString(month)

	for _, f := range []struct {
		name  string
		value string
	}{{"model type", s.ModelType}, {"hardware version", s.HardwareVersion}} {
		part, err := pad(f.name, f.value, 2)
		if err != nil {
			return "", err
		}
		b.WriteString(part)
	}

	return b.String(), nil
}

// ComposeDeviceNumber returns the device number for one serial
func ComposeDeviceNumber(spec NumberSpec, serial int) (string, error) {
	prefix, err := spec.Prefix()
	if err != nil {
		return "", err
	}
	if serial < 0 || serial > MaxSerialNumber {
		return "", fmt.Errorf("serial %d out of range", serial)
	}
	return fmt.Sprintf("%s%07d", prefix, serial), nil
}

// CheckBatchRange checks that both ends are set and start < end
func CheckBatchRange(start, end *int) error {
	if start == nil || end == nil {
		return fmt.Errorf("%w: start and end serial numbers are required", ErrInvalidBatchRange)
	}
	if *start >= *end {
		return fmt.Errorf("%w: start %d must be less than end %d", ErrInvalidBatchRange, *start, *end)
	}
	if *start < 0 || *end > MaxSerialNumber {
		return fmt.Errorf("%w: serials must be within 0..%d", ErrInvalidBatchRange, MaxSerialNumber)
	}
	return nil
}

// PreviewBatchNumbers returns the first limit device numbers the backend
// will generate for batch, and the total count. limit <= 0 returns all.
func PreviewBatchNumbers(factory *Factory, batch *ProductionBatch, limit int) ([]string, int, error) {
	if err := CheckBatchRange(batch.StartSerialNumber, batch.EndSerialNumber); err != nil {
		return nil, 0, err
	}

	spec := SpecFor(factory, batch)
	prefix, err := spec.Prefix()
	if err != nil {
		return nil, 0, err
	}

	start, end := *batch.StartSerialNumber, *batch.EndSerialNumber
	total := end - start + 1
	n := total
	if limit > 0 && limit < n {
		n = limit
	}

	numbers := make([]string, 0, n)
	for serial := start; serial < start+n; serial++ {
		numbers = append(numbers, fmt.Sprintf("%s%07d", prefix, serial))
	}
	return numbers, total, nil
}

func pad(name, value string, width int) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return "", fmt.Errorf("%s %q: must be a non-negative number", name, value)
	}
	s := fmt.Sprintf("%0*d", width, n)
	if len(s) > width {
		return "", fmt.Errorf("%s %q: more than %d digits", name, value, width)
	}
	return s, nil
}
