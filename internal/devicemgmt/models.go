package devicemgmt

import (
	"fmt"

	"github.com/YanXich/xiaozhi-esp32-server/internal/request"
)

// Status values assigned by the backend on creation
const (
	// FactoryStatusEnabled is the status of a newly created factory
	FactoryStatusEnabled = 0

	// BatchStatusPending is the status of a newly created production batch
	BatchStatusPending = 0

	// DeviceNumberStatusGenerated is the status of numbers generated for a batch
	DeviceNumberStatusGenerated = 1
)

// Factory is a device manufacturer
type Factory struct {
	ID         int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Code       string `json:"code,omitempty" yaml:"code,omitempty"`
	Country    string `json:"country,omitempty" yaml:"country,omitempty"` // Numeric country calling code, e.g. "86"
	Status     *int   `json:"status,omitempty" yaml:"status,omitempty"`
	CreateDate string `json:"createDate,omitempty" yaml:"-"`
	UpdateDate string `json:"updateDate,omitempty" yaml:"-"`
}

// CarModel is a car model configuration with the commands its devices use
type CarModel struct {
	ID            int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	CommandConfig string `json:"commandConfig,omitempty" yaml:"command_config,omitempty"` // Opaque JSON document
	CreateDate    string `json:"createDate,omitempty" yaml:"-"`
	UpdateDate    string `json:"updateDate,omitempty" yaml:"-"`
}

// ProductionBatch is a run of devices built by one factory.
// Creating a batch makes the backend generate one device number per serial
// in [StartSerialNumber, EndSerialNumber].
type ProductionBatch struct {
	ID                int64  `json:"id,omitempty" yaml:"id,omitempty"`
	FactoryID         int64  `json:"factoryId,omitempty" yaml:"factory_id,omitempty"`
	ModelType         string `json:"modelType,omitempty" yaml:"model_type,omitempty"`
	ProductionDate    string `json:"productionDate,omitempty" yaml:"production_date,omitempty"` // yyyy-MM-dd
	HardwareVersion   string `json:"hardwareVersion,omitempty" yaml:"hardware_version,omitempty"`
	AgentCode         string `json:"agentCode,omitempty" yaml:"agent_code,omitempty"`
	Status            *int   `json:"status,omitempty" yaml:"status,omitempty"`
	StartSerialNumber *int   `json:"startSerialNumber,omitempty" yaml:"start_serial_number,omitempty"`
	EndSerialNumber   *int   `json:"endSerialNumber,omitempty" yaml:"end_serial_number,omitempty"`
	CreateDate        string `json:"createDate,omitempty" yaml:"-"`
	UpdateDate        string `json:"updateDate,omitempty" yaml:"-"`
}

// DeviceNumber is a generated device identity
type DeviceNumber struct {
	ID           int64  `json:"id,omitempty"`
	BatchID      int64  `json:"batchId,omitempty"`
	DeviceNumber string `json:"deviceNumber,omitempty"`
	Status       *int   `json:"status,omitempty"`
	CreateDate   string `json:"createDate,omitempty"`
	UpdateDate   string `json:"updateDate,omitempty"`
}

// DeviceConfig binds a device number to a MAC address, car model and user.
// The backend calls these records device MACs.
type DeviceConfig struct {
	ID           int64  `json:"id,omitempty" yaml:"id,omitempty"`
	DeviceNumber string `json:"deviceNumber,omitempty" yaml:"device_number,omitempty"`
	MACAddress   string `json:"macAddress,omitempty" yaml:"mac_address,omitempty"`
	CarModel     string `json:"carModel,omitempty" yaml:"car_model,omitempty"`
	UserID       *int64 `json:"userId,omitempty" yaml:"user_id,omitempty"`
	DeviceName   string `json:"deviceName,omitempty" yaml:"device_name,omitempty"`
	Remark       string `json:"remark,omitempty" yaml:"remark,omitempty"`
	Status       *int   `json:"status,omitempty" yaml:"status,omitempty"`
	CreateDate   string `json:"createDate,omitempty" yaml:"-"`
	UpdateDate   string `json:"updateDate,omitempty" yaml:"-"`
}

// Page is one page of a list endpoint
type Page[T any] struct {
	Total int64 `json:"total"`
	List  []T   `json:"list"`
}

// RejectedError is a response whose envelope carries a non-zero code
type RejectedError struct {
	Code int
	Msg  string
}

func (e *RejectedError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("backend rejected request (code %d)", e.Code)
	}
	return fmt.Sprintf("backend rejected request (code %d): %s", e.Code, e.Msg)
}

// Rejected returns a *RejectedError when res carries a non-zero code
func Rejected(res *request.Response) error {
	if res.OK() {
		return nil
	}
	return &RejectedError{Code: res.Result.Code, Msg: res.Result.Msg}
}

// DecodePage decodes the data of a list response
func DecodePage[T any](res *request.Response) (*Page[T], error) {
	if err := Rejected(res); err != nil {
		return nil, err
	}
	var page Page[T]
	if err := res.DecodeData(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DecodeEntity decodes the data of a single-entity response
func DecodeEntity[T any](res *request.Response) (*T, error) {
	if err := Rejected(res); err != nil {
		return nil, err
	}
	var v T
	if err := res.DecodeData(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// IntPtr returns a pointer to v, for optional numeric fields
func IntPtr(v int) *int {
	return &v
}
