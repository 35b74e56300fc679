package ops

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"main/internal/gateway"
	"main/internal/refdata"
	"main/internal/risk"
)

// DefaultOrderTimeout applies when the strategy section leaves the order
// timeout unset.
const DefaultOrderTimeout = 20 * time.Second

// Server is one front address pair.
type Server struct {
	MarketDataAddress string `mapstructure:"market_data_address"`
	TradingAddress    string `mapstructure:"trading_address"`
}

// Account holds the broker credentials.
type Account struct {
	BrokerID   string `mapstructure:"broker_id"`
	UserID     string `mapstructure:"user_id"`
	Password   string `mapstructure:"password"`
	InvestorID string `mapstructure:"investor_id"`
	AppID      string `mapstructure:"app_id"`
	AuthCode   string `mapstructure:"auth_code"`
}

// ContractConfig holds per-product contract parameters.
type ContractConfig struct {
	PriceTick float64 `mapstructure:"price_tick"`
}

// StrategyConfig selects the traded product and strategy timing.
type StrategyConfig struct {
	Product       string        `mapstructure:"product"`
	OrderTimeout  time.Duration `mapstructure:"order_timeout"`
	ContractMonth string        `mapstructure:"contract_month"`
}

// Features toggles optional process behavior.
type Features struct {
	Paper          bool   `mapstructure:"paper"`
	Record         bool   `mapstructure:"record"`
	RecordDir      string `mapstructure:"record_dir"`
	Profile        bool   `mapstructure:"profile"`
	ProfileAddress string `mapstructure:"profile_address"`
}

// File mirrors the YAML configuration document.
type File struct {
	Servers         map[string]map[string]Server `mapstructure:"servers"`
	Account         Account                      `mapstructure:"account"`
	Products        map[string]string            `mapstructure:"products"`
	TradingSessions map[string][][]int           `mapstructure:"trading_sessions"`
	Contracts       map[string]ContractConfig    `mapstructure:"contracts"`
	Strategy        StrategyConfig               `mapstructure:"strategy"`
	Risk            risk.Config                  `mapstructure:"risk"`
	Features        Features                     `mapstructure:"features"`
}

// Loaded is the fully resolved runtime configuration for one
// environment/group selection.
type Loaded struct {
	MarketDataAddress string
	TradingAddress    string
	Credentials       gateway.Credentials
	RefData           refdata.Config
	Strategy          StrategyConfig
	Risk              risk.Config
	Features          Features
}

// Load reads the YAML file at path and resolves it against the given
// environment and server group. All validation happens here; callers get
// either a usable configuration or an error.
func Load(path, environment, group string) (*Loaded, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}

	var file File
	if err := v.Unmarshal(&file, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	return resolve(file, environment, group)
}

func resolve(file File, environment, group string) (*Loaded, error) {
	groups, ok := file.Servers[environment]
	if !ok {
		return nil, fmt.Errorf("unknown environment %q", environment)
	}
	server, ok := groups[group]
	if !ok {
		return nil, fmt.Errorf("unknown server group %q in environment %q", group, environment)
	}
	if server.MarketDataAddress == "" || server.TradingAddress == "" {
		return nil, fmt.Errorf("server %s/%s is missing front addresses", environment, group)
	}

	if file.Account.BrokerID == "" || file.Account.UserID == "" || file.Account.Password == "" {
		return nil, fmt.Errorf("account is missing broker_id, user_id or password")
	}

	if file.Strategy.Product == "" {
		return nil, fmt.Errorf("strategy.product is empty")
	}
	if file.Strategy.OrderTimeout < 0 {
		return nil, fmt.Errorf("strategy.order_timeout must be >= 0")
	}
	if file.Strategy.OrderTimeout == 0 {
		file.Strategy.OrderTimeout = DefaultOrderTimeout
	}

	sessions, err := sessionWindows(file.TradingSessions)
	if err != nil {
		return nil, err
	}

	ticks := make(map[string]float64, len(file.Contracts))
	for productID, contract := range file.Contracts {
		if contract.PriceTick < 0 {
			return nil, fmt.Errorf("contract %s has a negative price tick", productID)
		}
		ticks[productID] = contract.PriceTick
	}

	return &Loaded{
		MarketDataAddress: server.MarketDataAddress,
		TradingAddress:    server.TradingAddress,
		Credentials: gateway.Credentials{
			BrokerID:   file.Account.BrokerID,
			UserID:     file.Account.UserID,
			Password:   file.Account.Password,
			InvestorID: file.Account.InvestorID,
			AppID:      file.Account.AppID,
			AuthCode:   file.Account.AuthCode,
		},
		RefData: refdata.Config{
			Products:   file.Products,
			MonthCode:  file.Strategy.ContractMonth,
			Sessions:   sessions,
			PriceTicks: ticks,
		},
		Strategy: file.Strategy,
		Risk:     file.Risk,
		Features: file.Features,
	}, nil
}

// sessionWindows converts the [startHour, startMin, endHour, endMin] rows
// into inclusive session windows.
func sessionWindows(raw map[string][][]int) (map[string][]refdata.Window, error) {
	sessions := make(map[string][]refdata.Window, len(raw))
	for productID, rows := range raw {
		windows := make([]refdata.Window, 0, len(rows))
		for i, row := range rows {
			if len(row) != 4 {
				return nil, fmt.Errorf("trading session %s[%d] must have 4 fields, got %d", productID, i, len(row))
			}
			if row[0] < 0 || row[0] > 23 || row[2] < 0 || row[2] > 23 ||
				row[1] < 0 || row[1] > 59 || row[3] < 0 || row[3] > 59 {
				return nil, fmt.Errorf("trading session %s[%d] is out of range: %v", productID, i, row)
			}
			windows = append(windows, refdata.Window{
				Start: refdata.NewDayTime(row[0], row[1]),
				End:   refdata.NewDayTime(row[2], row[3]),
			})
		}
		sessions[productID] = windows
	}
	return sessions, nil
}
