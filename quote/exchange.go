package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/etnz/stockfolio/date"
	"github.com/rs/zerolog"
)

// Default endpoints hosts.
const (
	TWSEURL = "https://www.twse.com.tw"
	TPExURL = "https://www.tpex.org.tw"
)

// DailyQuote is the latest row of an exchange daily report.
type DailyQuote struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Exchange queries the Taiwan Stock Exchange (main board) and the Taipei
// Exchange (OTC and emerging boards) daily quotes.
type Exchange struct {
	Client  *http.Client
	Timeout time.Duration // per request
	TWSEURL string
	TPExURL string
	Today   func() date.Date
	log     zerolog.Logger
}

// NewExchange returns an Exchange on the public endpoints.
func NewExchange(client *http.Client, timeout time.Duration, log zerolog.Logger) *Exchange {
	return &Exchange{
		Client:  client,
		Timeout: timeout,
		TWSEURL: TWSEURL,
		TPExURL: TPExURL,
		Today:   date.Today,
		log:     log.With().Str("source", "exchange").Logger(),
	}
}

/*
	{
	    "stat": "OK",
	    "date": "20250307",
	    "fields": ["日期","成交股數","成交金額","開盤價","最高價","最低價","收盤價","漲跌價差","成交筆數"],
	    "data": [
	        ["114/03/03","25,634,512","26,420,101,236","1,025.00","1,035.00","1,020.00","1,030.00","+5.00","45,120"],
	        ...
	    ]
	}
*/

// MainBoard returns the latest daily quote of a main board security.
func (x *Exchange) MainBoard(ctx context.Context, code string) (DailyQuote, error) {
	q := url.Values{}
	q.Set("response", "json")
	q.Set("date", x.Today().Compact())
	q.Set("stockNo", code)
	addr := x.TWSEURL + "/exchangeReport/STOCK_DAY?" + q.Encode()

	jobj, err := getJSON(ctx, x.Client, x.Timeout, addr)
	if err != nil {
		return DailyQuote{}, err
	}
	stat, err := pick("$.stat", jobj)
	if err != nil {
		return DailyQuote{}, err
	}
	if stat != "OK" {
		return DailyQuote{}, fmt.Errorf("main board has no data for %s: %v", code, stat)
	}
	row, err := lastRow(jobj, "$.data")
	if err != nil {
		return DailyQuote{}, fmt.Errorf("main board has no data for %s: %w", code, err)
	}
	if len(row) < 7 {
		return DailyQuote{}, fmt.Errorf("main board row too short for %s: %v", code, row)
	}
	dq := DailyQuote{Date: fmt.Sprint(row[0])}
	if dq.Close, err = number(row[6]); err != nil {
		return DailyQuote{}, fmt.Errorf("main board close for %s: %w", code, err)
	}
	// informative fields, a "--" is common on days without trade
	dq.Volume, _ = number(row[1])
	dq.Open, _ = number(row[3])
	dq.High, _ = number(row[4])
	dq.Low, _ = number(row[5])
	return dq, nil
}

// OTC returns the latest daily quote of an OTC or emerging board security.
func (x *Exchange) OTC(ctx context.Context, code string) (DailyQuote, error) {
	q := url.Values{}
	q.Set("l", "zh-tw")
	q.Set("d", x.Today().Slashed())
	q.Set("stkno", code)
	addr := x.TPExURL + "/web/stock/aftertrading/daily_close_quotes/stk_quote_result.php?" + q.Encode()

	jobj, err := getJSON(ctx, x.Client, x.Timeout, addr)
	if err != nil {
		return DailyQuote{}, err
	}
	row, err := lastRow(jobj, "$.aaData")
	if err != nil {
		return DailyQuote{}, fmt.Errorf("otc has no data for %s: %w", code, err)
	}
	if len(row) < 3 {
		return DailyQuote{}, fmt.Errorf("otc row too short for %s: %v", code, row)
	}
	dq := DailyQuote{Date: x.Today().String()}
	if dq.Close, err = number(row[2]); err != nil {
		return DailyQuote{}, fmt.Errorf("otc price for %s: %w", code, err)
	}
	if len(row) > 7 {
		dq.Volume, _ = number(row[7])
	}
	return dq, nil
}

// endpoint is one exchange query returning a close price.
type endpoint struct {
	name  string
	quote func(*Exchange, context.Context, string) (DailyQuote, error)
}

var (
	mainBoard = endpoint{"main board", (*Exchange).MainBoard}
	otcBoard  = endpoint{"otc", (*Exchange).OTC}
	// emerging board quotes are published by the OTC exchange.
	emergingBoard = endpoint{"emerging", (*Exchange).OTC}
)

// dispatch lists the endpoints to try, in order, for each kind.
var dispatch = map[Kind][]endpoint{
	ETF:     {mainBoard, otcBoard},
	Listed:  {mainBoard},
	OTC:     {otcBoard},
	Unknown: {mainBoard, otcBoard, emergingBoard},
}

// Price returns the latest close of code, trying every endpoint of its kind in turn.
func (x *Exchange) Price(ctx context.Context, code string) (float64, error) {
	kind := Classify(code)
	endpoints := dispatch[kind]
	attempts := make([]Attempt[float64], 0, len(endpoints))
	for _, e := range endpoints {
		attempts = append(attempts, Attempt[float64]{
			Name: e.name,
			Fn: func(ctx context.Context) (float64, error) {
				dq, err := e.quote(x, ctx, code)
				return dq.Close, err
			},
		})
	}
	price, name, err := First(ctx, x.log.With().Str("code", code).Str("kind", kind.String()).Logger(), attempts, positive)
	if err != nil {
		return 0, errors.Join(fmt.Errorf("no exchange quote for %s (%s)", code, kind), err)
	}
	x.log.Debug().Str("code", code).Str("endpoint", name).Float64("price", price).Msg("exchange quote")
	return price, nil
}
