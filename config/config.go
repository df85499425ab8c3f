package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"sjsage522/eventworker/pkg/errors"
)

// SiteSelectors holds the page selectors of one scraped site. Remove*
// selectors name elements dropped from a field before its text is read.
type SiteSelectors struct {
	List            string
	Title           string
	Link            string
	Date            string
	RemoveFromTitle []string
	RemoveFromDate  []string
}

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisStream       string
	RedisStreamMaxLen int64

	// Memcache configuration
	MemcacheAddr   string
	RateLimitBlock time.Duration

	// Scheduling
	CrawlInterval time.Duration
	TimeZone      string

	// Sent-record store
	SentKeyPrefix        string
	SentTTL              time.Duration
	StoreReadConcurrency int
	StoreTimeout         time.Duration

	// Telegram
	TelegramBotToken   string
	TelegramChatID     string
	TelegramAPIURL     string
	TelegramTimeout    time.Duration
	MaxMessageLength   int
	SafeTruncateLength int

	// Site extractors
	HTTPTimeout                 time.Duration
	BloodinfoURL                string
	BloodinfoCategories         []int
	BloodinfoExcludedCategories []int
	KTCUURL                     string
	KTCUUseTitleHash            bool
	SJACURL                     string
	SJACOrigin                  string
	LifeSJEAPIURL               string
	LifeSJEBaseURL              string
	LifeSJEManageCode           string
	LifeSJEMajorCategory        string

	// Page selectors
	BloodinfoSelectors SiteSelectors
	KTCUSelectors      SiteSelectors
	SJACSelectors      SiteSelectors

	// Optional outputs
	PublishEnabled bool
	MetricsAddr    string

	// Environment
	Environment string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_stream", "events")
	v.SetDefault("redis_stream_maxlen", 1000)
	v.SetDefault("memcache_addr", "localhost:11211")
	v.SetDefault("rate_limit_block", "5m")
	v.SetDefault("crawl_interval_seconds", 3600)
	v.SetDefault("time_zone", "Asia/Seoul")
	v.SetDefault("sent_key_prefix", "sent:")
	v.SetDefault("sent_ttl_days", 60)
	v.SetDefault("store_read_concurrency", 5)
	v.SetDefault("store_timeout", "5s")
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("telegram_api_url", "https://api.telegram.org")
	v.SetDefault("telegram_timeout", "15s")
	v.SetDefault("max_message_length", 4096)
	v.SetDefault("safe_truncate_length", 4000)
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("bloodinfo_url", "https://www.bloodinfo.net/knrcbs/pr/promtn/progrsPromtnList.do")
	v.SetDefault("bloodinfo_categories", []string{"1301", "1302", "1303"})
	v.SetDefault("bloodinfo_excluded_categories", []string{"1302"})
	v.SetDefault("ktcu_url", "https://www.ktcu.or.kr/PPW-WFA-100101")
	v.SetDefault("ktcu_use_title_hash", true)
	v.SetDefault("sjac_url", "https://www.sjac.or.kr/base/board/list?boardManagementNo=38")
	v.SetDefault("sjac_origin", "https://www.sjac.or.kr")
	v.SetDefault("lifesje_api_url", "https://life.sje.go.kr/api/homepageprogramlist")
	v.SetDefault("lifesje_base_url", "https://life.sje.go.kr")
	v.SetDefault("lifesje_manage_code", "150018")
	v.SetDefault("lifesje_major_category", "3")
	v.SetDefault("bloodinfo_selector_list", "a.promtnInfoBtn[data-id]")
	v.SetDefault("bloodinfo_selector_title", "span")
	v.SetDefault("ktcu_selector_list", "div.box-event")
	v.SetDefault("ktcu_selector_title", "strong.tit")
	v.SetDefault("ktcu_selector_date", "p.date")
	v.SetDefault("sjac_selector_list", "tbody tr")
	v.SetDefault("sjac_selector_link", "td.tit a")
	v.SetDefault("sjac_selector_date", "td.date")
	v.SetDefault("sjac_remove_from_title", []string{"em.new_mark"})
	v.SetDefault("sjac_remove_from_date", []string{"span"})
	v.SetDefault("publish_enabled", false)
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("eventworker_environment", "development")
}

// LoadConfig builds the configuration from defaults, an optional config file
// and environment variables, in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfiguration("failed to read config file "+path, err)
		}
	}

	categories, err := getIntList(v, "bloodinfo_categories")
	if err != nil {
		return nil, err
	}
	excluded, err := getIntList(v, "bloodinfo_excluded_categories")
	if err != nil {
		return nil, err
	}

	return &Config{
		RedisAddr:                   v.GetString("redis_addr"),
		RedisPassword:               v.GetString("redis_password"),
		RedisDB:                     v.GetInt("redis_db"),
		RedisStream:                 v.GetString("redis_stream"),
		RedisStreamMaxLen:           v.GetInt64("redis_stream_maxlen"),
		MemcacheAddr:                v.GetString("memcache_addr"),
		RateLimitBlock:              v.GetDuration("rate_limit_block"),
		CrawlInterval:               time.Duration(v.GetInt("crawl_interval_seconds")) * time.Second,
		TimeZone:                    v.GetString("time_zone"),
		SentKeyPrefix:               v.GetString("sent_key_prefix"),
		SentTTL:                     time.Duration(v.GetInt("sent_ttl_days")) * 24 * time.Hour,
		StoreReadConcurrency:        v.GetInt("store_read_concurrency"),
		StoreTimeout:                v.GetDuration("store_timeout"),
		TelegramBotToken:            v.GetString("telegram_bot_token"),
		TelegramChatID:              v.GetString("telegram_chat_id"),
		TelegramAPIURL:              strings.TrimRight(v.GetString("telegram_api_url"), "/"),
		TelegramTimeout:             v.GetDuration("telegram_timeout"),
		MaxMessageLength:            v.GetInt("max_message_length"),
		SafeTruncateLength:          v.GetInt("safe_truncate_length"),
		HTTPTimeout:                 v.GetDuration("http_timeout"),
		BloodinfoURL:                v.GetString("bloodinfo_url"),
		BloodinfoCategories:         categories,
		BloodinfoExcludedCategories: excluded,
		KTCUURL:                     v.GetString("ktcu_url"),
		KTCUUseTitleHash:            v.GetBool("ktcu_use_title_hash"),
		SJACURL:                     v.GetString("sjac_url"),
		SJACOrigin:                  strings.TrimRight(v.GetString("sjac_origin"), "/"),
		LifeSJEAPIURL:               v.GetString("lifesje_api_url"),
		LifeSJEBaseURL:              strings.TrimRight(v.GetString("lifesje_base_url"), "/"),
		LifeSJEManageCode:           v.GetString("lifesje_manage_code"),
		LifeSJEMajorCategory:        v.GetString("lifesje_major_category"),
		BloodinfoSelectors:          siteSelectors(v, "bloodinfo"),
		KTCUSelectors:               siteSelectors(v, "ktcu"),
		SJACSelectors:               siteSelectors(v, "sjac"),
		PublishEnabled:              v.GetBool("publish_enabled"),
		MetricsAddr:                 v.GetString("metrics_addr"),
		Environment:                 v.GetString("eventworker_environment"),
	}, nil
}

func siteSelectors(v *viper.Viper, site string) SiteSelectors {
	return SiteSelectors{
		List:            v.GetString(site + "_selector_list"),
		Title:           v.GetString(site + "_selector_title"),
		Link:            v.GetString(site + "_selector_link"),
		Date:            v.GetString(site + "_selector_date"),
		RemoveFromTitle: getStringList(v, site+"_remove_from_title"),
		RemoveFromDate:  getStringList(v, site+"_remove_from_date"),
	}
}

// getStringList accepts a YAML list or a comma separated env value.
func getStringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// getIntList accepts a YAML list or a comma separated env value.
func getIntList(v *viper.Viper, key string) ([]int, error) {
	var out []int
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, errors.NewConfiguration(fmt.Sprintf("%s: invalid integer %q", strings.ToUpper(key), part), err)
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// ActiveBloodinfoCategories returns the configured categories minus the
// excluded ones, in configured order.
func (c *Config) ActiveBloodinfoCategories() []int {
	excluded := make(map[int]struct{}, len(c.BloodinfoExcludedCategories))
	for _, id := range c.BloodinfoExcludedCategories {
		excluded[id] = struct{}{}
	}
	var active []int
	for _, id := range c.BloodinfoCategories {
		if _, skip := excluded[id]; !skip {
			active = append(active, id)
		}
	}
	return active
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.NewConfiguration("invalid TIME_ZONE "+c.TimeZone, err)
	}
	return loc, nil
}

// IsProduction reports whether the worker runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks everything a notification run needs.
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return errors.NewConfiguration("TELEGRAM_BOT_TOKEN is required", nil)
	}
	if c.TelegramChatID == "" {
		return errors.NewConfiguration("TELEGRAM_CHAT_ID is required", nil)
	}
	if c.StoreReadConcurrency <= 0 {
		return errors.NewConfiguration("STORE_READ_CONCURRENCY must be positive", nil)
	}
	if c.SafeTruncateLength <= 0 || c.SafeTruncateLength+3 > c.MaxMessageLength {
		return errors.NewConfiguration(fmt.Sprintf("SAFE_TRUNCATE_LENGTH (%d) plus suffix must fit MAX_MESSAGE_LENGTH (%d)",
			c.SafeTruncateLength, c.MaxMessageLength), nil)
	}
	if c.SentTTL <= 0 {
		return errors.NewConfiguration("SENT_TTL_DAYS must be positive", nil)
	}
	if c.CrawlInterval <= 0 {
		return errors.NewConfiguration("CRAWL_INTERVAL_SECONDS must be positive", nil)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if len(c.ActiveBloodinfoCategories()) == 0 {
		return errors.NewConfiguration("no bloodinfo categories left after exclusion", nil)
	}
	return nil
}
