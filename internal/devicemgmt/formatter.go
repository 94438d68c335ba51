package devicemgmt

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the factory
func (f *Factory) Summary() string {
	return fmt.Sprintf("Factory #%d %s (code %s, country %s)", f.ID, f.Name, f.Code, f.Country)
}

// Row returns the factory as table cells
func (f *Factory) Row() []string {
	return []string{fmt.Sprint(f.ID), f.Name, f.Code, f.Country, formatStatus(f.Status), f.CreateDate}
}

// FactoryColumns are the column titles matching Factory.Row
var FactoryColumns = []string{"ID", "Name", "Code", "Country", "Status", "Created"}

// Summary returns a one-line summary of the car model
func (c *CarModel) Summary() string {
	return fmt.Sprintf("Car model #%d %s", c.ID, c.Description)
}

// Row returns the car model as table cells
func (c *CarModel) Row() []string {
	return []string{fmt.Sprint(c.ID), c.Description, truncate(c.CommandConfig, 40), c.CreateDate}
}

// CarModelColumns are the column titles matching CarModel.Row
var CarModelColumns = []string{"ID", "Description", "Commands", "Created"}

// Summary returns a one-line summary of the batch
func (b *ProductionBatch) Summary() string {
	return fmt.Sprintf("Batch #%d factory %d model %s hw %s (%s serials %s-%s)",
		b.ID, b.FactoryID, b.ModelType, b.HardwareVersion, b.ProductionDate,
		formatOptional(b.StartSerialNumber), formatOptional(b.EndSerialNumber))
}

// Row returns the batch as table cells
func (b *ProductionBatch) Row() []string {
	return []string{
		fmt.Sprint(b.ID), fmt.Sprint(b.FactoryID), b.ModelType, b.HardwareVersion, b.AgentCode,
		b.ProductionDate, formatOptional(b.StartSerialNumber) + "-" + formatOptional(b.EndSerialNumber),
		formatStatus(b.Status),
	}
}

// BatchColumns are the column titles matching ProductionBatch.Row
var BatchColumns = []string{"ID", "Factory", "Model", "HW", "Agent", "Date", "Serials", "Status"}

// Row returns the device number as table cells
func (d *DeviceNumber) Row() []string {
	return []string{fmt.Sprint(d.ID), fmt.Sprint(d.BatchID), d.DeviceNumber, formatStatus(d.Status), d.CreateDate}
}

// DeviceNumberColumns are the column titles matching DeviceNumber.Row
var DeviceNumberColumns = []string{"ID", "Batch", "Device Number", "Status", "Created"}

// Summary returns a one-line summary of the device config
func (d *DeviceConfig) Summary() string {
	return fmt.Sprintf("Device #%d %s (%s) model %s", d.ID, d.DeviceNumber, d.MACAddress, d.CarModel)
}

// Row returns the device config as table cells
func (d *DeviceConfig) Row() []string {
	user := "-"
	if d.UserID != nil {
		user = fmt.Sprint(*d.UserID)
	}
	return []string{fmt.Sprint(d.ID), d.DeviceNumber, d.MACAddress, d.CarModel, d.DeviceName, user, formatStatus(d.Status)}
}

// DeviceConfigColumns are the column titles matching DeviceConfig.Row
var DeviceConfigColumns = []string{"ID", "Device Number", "MAC", "Car Model", "Name", "User", "Status"}

// FormatDetailed returns a multi-line description of the device config
func (d *DeviceConfig) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("=== Device Config ===\n")
	b.WriteString(fmt.Sprintf("ID:            %d\n", d.ID))
	b.WriteString(fmt.Sprintf("Device Number: %s\n", d.DeviceNumber))
	b.WriteString(fmt.Sprintf("MAC Address:   %s\n", d.MACAddress))
	b.WriteString(fmt.Sprintf("Car Model:     %s\n", d.CarModel))
	b.WriteString(fmt.Sprintf("Device Name:   %s\n", d.DeviceName))
	if d.UserID != nil {
		b.WriteString(fmt.Sprintf("User ID:       %d\n", *d.UserID))
	}
	if d.Remark != "" {
		b.WriteString(fmt.Sprintf("Remark:        %s\n", d.Remark))
	}
	b.WriteString(fmt.Sprintf("Status:        %s\n", formatStatus(d.Status)))
	if d.CreateDate != "" {
		b.WriteString(fmt.Sprintf("Created:       %s\n", d.CreateDate))
	}
	if d.UpdateDate != "" {
		b.WriteString(fmt.Sprintf("Updated:       %s\n", d.UpdateDate))
	}

	return b.String()
}

func formatStatus(status *int) string {
	if status == nil {
		return "-"
	}
	return fmt.Sprint(*status)
}

func formatOptional(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprint(*v)
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
