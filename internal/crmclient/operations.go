package crmclient

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const (
	helloQuery = `{ hello }`

	restockMutation = `mutation {
  updateLowStockProducts {
    message
    updatedProducts { name stock }
  }
}`

	recentOrdersQuery = `query RecentOrders($lastDays: Int!) {
  orders(lastDays: $lastDays) {
    id
    customer { email }
  }
}`

	reportQuery = `{ crmReport { customers orders revenue } }`
)

// Hello calls the liveness query and returns its greeting.
func (c *Client) Hello(ctx context.Context) (string, error) {
	var out string
	err := c.do(ctx, helloQuery, nil, field("hello", func(d *jx.Decoder) (err error) {
		out, err = d.Str()
		return err
	}))
	if err != nil {
		return "", errors.Wrap(err, "hello")
	}
	return out, nil
}

// RestockedProduct is a product touched by a restock pass.
type RestockedProduct struct {
	Name  string
	Stock int
}

// RestockResult is the payload of updateLowStockProducts.
type RestockResult struct {
	Message  string
	Products []RestockedProduct
}

// UpdateLowStockProducts triggers a restock of every low-stock product.
func (c *Client) UpdateLowStockProducts(ctx context.Context) (*RestockResult, error) {
	var out RestockResult
	err := c.do(ctx, restockMutation, nil, field("updateLowStockProducts", func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) (err error) {
			switch key {
			case "message":
				out.Message, err = d.Str()
				return err
			case "updatedProducts":
				return d.Arr(func(d *jx.Decoder) error {
					var p RestockedProduct
					if err := d.Obj(func(d *jx.Decoder, key string) (err error) {
						switch key {
						case "name":
							p.Name, err = d.Str()
						case "stock":
							p.Stock, err = d.Int()
						default:
							err = d.Skip()
						}
						return err
					}); err != nil {
						return err
					}
					out.Products = append(out.Products, p)
					return nil
				})
			default:
				return d.Skip()
			}
		})
	}))
	if err != nil {
		return nil, errors.Wrap(err, "update low stock products")
	}
	return &out, nil
}

// OrderReminder identifies an order and the customer to remind.
type OrderReminder struct {
	OrderID string
	Email   string
}

// RecentOrders lists orders placed within the trailing lastDays days.
func (c *Client) RecentOrders(ctx context.Context, lastDays int) ([]OrderReminder, error) {
	vars := []variable{{name: "lastDays", enc: func(e *jx.Encoder) { e.Int(lastDays) }}}

	var out []OrderReminder
	err := c.do(ctx, recentOrdersQuery, vars, field("orders", func(d *jx.Decoder) error {
		return d.Arr(func(d *jx.Decoder) error {
			var r OrderReminder
			if err := d.Obj(func(d *jx.Decoder, key string) (err error) {
				switch key {
				case "id":
					r.OrderID, err = d.Str()
				case "customer":
					err = d.Obj(func(d *jx.Decoder, key string) (err error) {
						if key != "email" {
							return d.Skip()
						}
						r.Email, err = d.Str()
						return err
					})
				default:
					err = d.Skip()
				}
				return err
			}); err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	}))
	if err != nil {
		return nil, errors.Wrap(err, "recent orders")
	}
	return out, nil
}

// Report is a CRM-wide totals snapshot.
type Report struct {
	Customers int
	Orders    int
	Revenue   decimal.Decimal
}

// Report fetches the current customer count, order count and revenue.
func (c *Client) Report(ctx context.Context) (*Report, error) {
	var out Report
	err := c.do(ctx, reportQuery, nil, field("crmReport", func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) (err error) {
			switch key {
			case "customers":
				out.Customers, err = d.Int()
			case "orders":
				out.Orders, err = d.Int()
			case "revenue":
				var n jx.Num
				if n, err = d.Num(); err != nil {
					return err
				}
				// Parse the literal so the figure is not rounded through float64.
				out.Revenue, err = decimal.NewFromString(n.String())
			default:
				err = d.Skip()
			}
			return err
		})
	}))
	if err != nil {
		return nil, errors.Wrap(err, "report")
	}
	return &out, nil
}
