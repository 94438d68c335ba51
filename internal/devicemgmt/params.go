package devicemgmt

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Params is anything that serializes to URL query values
type Params interface {
	Values() url.Values
}

// Query is a free-form parameter object. Nil values are skipped; slices add
// one value per element; everything else is formatted with fmt.
type Query map[string]any

// Values implements Params
func (q Query) Values() url.Values {
	values := make(url.Values, len(q))
	for key, v := range q {
		switch val := v.(type) {
		case nil:
			continue
		case []string:
			for _, s := range val {
				values.Add(key, s)
			}
		case []any:
			for _, s := range val {
				values.Add(key, fmt.Sprint(s))
			}
		default:
			values.Add(key, fmt.Sprint(val))
		}
	}
	return values
}

// EncodeQuery serializes params with standard URL encoding, keys sorted.
// A nil Params encodes to the empty string.
func EncodeQuery(params Params) string {
	if params == nil {
		return ""
	}
	return params.Values().Encode()
}

// PageQuery carries paging and an optional name filter. It is accepted by
// the device-number, car-model and device-config list endpoints.
type PageQuery struct {
	Page  int
	Limit int
	Name  string
}

// Values implements Params
func (q PageQuery) Values() url.Values {
	v := url.Values{}
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	setString(v, "name", q.Name)
	return v
}

// CarModelQuery filters the car-model list; Name matches the description
type CarModelQuery = PageQuery

// FactoryQuery filters the factory list
type FactoryQuery struct {
	Name   string // Substring match
	Code   string // Exact match
	Status string
	Page   int
	Limit  int
}

// Values implements Params
func (q FactoryQuery) Values() url.Values {
	v := url.Values{}
	setString(v, "name", q.Name)
	setString(v, "code", q.Code)
	setString(v, "status", q.Status)
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	return v
}

// BatchQuery filters the production batch list
type BatchQuery struct {
	FactoryID       int64
	Status          string
	ModelType       string
	HardwareVersion string
	StartDate       string
	EndDate         string
	Page            int
	Limit           int
}

// Values implements Params
func (q BatchQuery) Values() url.Values {
	v := url.Values{}
	if q.FactoryID > 0 {
		v.Set("factoryId", strconv.FormatInt(q.FactoryID, 10))
	}
	setString(v, "status", q.Status)
	setString(v, "modelType", q.ModelType)
	setString(v, "hardwareVersion", q.HardwareVersion)
	setString(v, "startDate", q.StartDate)
	setString(v, "endDate", q.EndDate)
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	return v
}

// DeviceConfigQuery filters the device-config (device MAC) list
type DeviceConfigQuery struct {
	DeviceNumber string
	MACAddress   string
	DeviceName   string
	Page         int
	Limit        int
}

// Values implements Params
func (q DeviceConfigQuery) Values() url.Values {
	v := url.Values{}
	setString(v, "deviceNumber", q.DeviceNumber)
	setString(v, "macAddress", q.MACAddress)
	setString(v, "deviceName", q.DeviceName)
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	return v
}

func setString(v url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		v.Set(key, value)
	}
}

func setInt(v url.Values, key string, value int) {
	if value > 0 {
		v.Set(key, strconv.Itoa(value))
	}
}
