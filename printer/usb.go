package printer

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
)

type usbConn struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint
}

// OpenUSB claims the first interface of the printer with the given ids and
// writes to its bulk OUT endpoint 1.
func OpenUSB(vendorID, productID gousb.ID) (*WriterSink, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(vendorID, productID)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("open USB printer %s:%s: %w", vendorID, productID, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("USB printer %s:%s not found", vendorID, productID)
	}

	conn := &usbConn{ctx: ctx, dev: dev}
	if err := conn.claim(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := writeAll(conn, cmdInit); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialise USB printer: %w", err)
	}
	return NewWriterSink("usb", conn), nil
}

func (u *usbConn) claim() error {
	if err := u.dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("USB auto-detach: %w", err)
	}
	cfg, err := u.dev.Config(1)
	if err != nil {
		return fmt.Errorf("USB config: %w", err)
	}
	u.cfg = cfg

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		return fmt.Errorf("USB interface: %w", err)
	}
	u.intf = intf

	out, err := intf.OutEndpoint(1)
	if err != nil {
		return fmt.Errorf("USB OUT endpoint: %w", err)
	}
	u.out = out

	// Status reads are optional; many printers have no IN endpoint.
	if in, err := intf.InEndpoint(1); err == nil {
		u.in = in
	}
	return nil
}

func (u *usbConn) Read(p []byte) (int, error) {
	if u.in != nil {
		return u.in.Read(p)
	}
	return 0, errors.New("USB read not supported")
}

func (u *usbConn) Write(p []byte) (int, error) {
	return u.out.Write(p)
}

func (u *usbConn) Close() error {
	if u.intf != nil {
		u.intf.Close()
	}
	var errs []error
	if u.cfg != nil {
		errs = append(errs, u.cfg.Close())
	}
	if u.dev != nil {
		errs = append(errs, u.dev.Close())
	}
	if u.ctx != nil {
		errs = append(errs, u.ctx.Close())
	}
	return errors.Join(errs...)
}
