// Package dispatch turns chat input into typed commands and runs them
// against the ordering core.
package dispatch

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command is one of the types below.
type Command interface {
	command()
}

type ShowMenu struct {
	CategoryID string
}

type AddItem struct {
	ItemID int64
	Qty    int
}

type ViewCart struct{}

type SetQuantity struct {
	ItemID int64
	Qty    int
}

type RemoveItem struct {
	ItemID int64
}

type ClearCart struct{}

type Checkout struct{}

type ListOrders struct{}

type OrderStatus struct {
	OrderID string
}

type Help struct{}

func (ShowMenu) command()    {}
func (AddItem) command()     {}
func (ViewCart) command()    {}
func (SetQuantity) command() {}
func (RemoveItem) command()  {}
func (ClearCart) command()   {}
func (Checkout) command()    {}
func (ListOrders) command()  {}
func (OrderStatus) command() {}
func (Help) command()        {}

var (
	itemPattern   = regexp.MustCompile(`^(\d+)(?:\s*[x*×]\s*(\d+))?$`)
	removePattern = regexp.MustCompile(`^(?:移除|刪除|remove)\s*(\d+)$`)
)

// ParseText maps a chat message to a command. Anything it does not
// recognise becomes Help, so the user always gets pointed at the menu.
func ParseText(text string) Command {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	switch lower {
	case "菜單", "menu":
		return ShowMenu{}
	case "購物車", "cart":
		return ViewCart{}
	case "結帳", "checkout":
		return Checkout{}
	case "訂單", "orders":
		return ListOrders{}
	case "清空", "clear":
		return ClearCart{}
	case "說明", "help":
		return Help{}
	}

	for _, prefix := range []string{"菜單 ", "menu "} {
		if cat, ok := strings.CutPrefix(lower, prefix); ok {
			return ShowMenu{CategoryID: strings.TrimSpace(cat)}
		}
	}
	for _, prefix := range []string{"訂單 ", "order "} {
		if id, ok := strings.CutPrefix(lower, prefix); ok {
			return OrderStatus{OrderID: strings.TrimSpace(id)}
		}
	}

	if m := itemPattern.FindStringSubmatch(lower); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return Help{}
		}
		qty := 1
		if m[2] != "" {
			if qty, err = strconv.Atoi(m[2]); err != nil {
				return Help{}
			}
		}
		return AddItem{ItemID: id, Qty: qty}
	}

	if m := removePattern.FindStringSubmatch(lower); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return Help{}
		}
		return RemoveItem{ItemID: id}
	}

	return Help{}
}

// ParsePostback decodes postback data such as "action=add&item=3&qty=2".
func ParsePostback(data string) (Command, error) {
	values, err := url.ParseQuery(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCommand, err)
	}

	switch action := values.Get("action"); action {
	case "menu":
		return ShowMenu{CategoryID: values.Get("category")}, nil
	case "add":
		id, err := itemParam(values)
		if err != nil {
			return nil, err
		}
		qty, err := qtyParam(values, 1)
		if err != nil {
			return nil, err
		}
		return AddItem{ItemID: id, Qty: qty}, nil
	case "set":
		id, err := itemParam(values)
		if err != nil {
			return nil, err
		}
		if !values.Has("qty") {
			return nil, fmt.Errorf("%w: set requires qty", ErrUnknownCommand)
		}
		qty, err := qtyParam(values, 0)
		if err != nil {
			return nil, err
		}
		return SetQuantity{ItemID: id, Qty: qty}, nil
	case "remove":
		id, err := itemParam(values)
		if err != nil {
			return nil, err
		}
		return RemoveItem{ItemID: id}, nil
	case "cart":
		return ViewCart{}, nil
	case "clear":
		return ClearCart{}, nil
	case "checkout":
		return Checkout{}, nil
	case "orders":
		return ListOrders{}, nil
	case "status":
		id := values.Get("order")
		if id == "" {
			return nil, fmt.Errorf("%w: status requires order", ErrUnknownCommand)
		}
		return OrderStatus{OrderID: id}, nil
	case "help":
		return Help{}, nil
	default:
		return nil, fmt.Errorf("%w: action %q", ErrUnknownCommand, action)
	}
}

func itemParam(values url.Values) (int64, error) {
	id, err := strconv.ParseInt(values.Get("item"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad item %q", ErrUnknownCommand, values.Get("item"))
	}
	return id, nil
}

func qtyParam(values url.Values, def int) (int, error) {
	raw := values.Get("qty")
	if raw == "" {
		return def, nil
	}
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: bad qty %q", ErrUnknownCommand, raw)
	}
	return qty, nil
}

// IsRejection reports whether err is a domain outcome the user should be
// told about rather than an internal failure.
func IsRejection(err error) bool {
	return domain.IsDomain(err)
}
