// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"prikit/internal/detector"
)

// Locale selects the synthetic data tables
type Locale string

const (
	LocaleZhCN Locale = "zh_CN"
	LocaleEnUS Locale = "en_US"
)

// en-US first: unmatched languages fall back to it
var localeMatcher = language.NewMatcher([]language.Tag{
	language.AmericanEnglish,
	language.SimplifiedChinese,
})

// ResolveLocale maps an analysis language such as "zh", "en" or "zh_CN" to a
// fake-data locale.
func ResolveLocale(lang string) Locale {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if err != nil {
		return LocaleEnUS
	}
	_, index, confidence := localeMatcher.Match(tag)
	if confidence == language.No || index == 0 {
		return LocaleEnUS
	}
	return LocaleZhCN
}

// Faker generates locale-appropriate synthetic values. It is safe for
// concurrent use.
type Faker struct {
	mu     sync.Mutex
	rng    *rand.Rand
	locale Locale
	now    func() time.Time
}

// NewFaker creates a randomly seeded generator for the language
func NewFaker(lang string) *Faker {
	return NewSeededFaker(lang, rand.Uint64())
}

// NewSeededFaker creates a generator whose output is fixed by seed
func NewSeededFaker(lang string, seed uint64) *Faker {
	return &Faker{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		locale: ResolveLocale(lang),
		now:    time.Now,
	}
}

// Locale returns the generator's locale
func (f *Faker) Locale() Locale {
	return f.locale
}

// Value returns a synthetic value for the category. DEFAULT yields "***".
func (f *Faker) Value(category detector.Category) string {
	switch category {
	case detector.CategoryPerson:
		return f.Name()
	case detector.CategoryPhone:
		return f.PhoneNumber()
	case detector.CategoryLocation:
		return f.Location()
	case detector.CategoryEmail:
		return f.SafeEmail()
	case detector.CategoryDateTime:
		return f.PastDate()
	case detector.CategoryCreditCard, detector.CategoryBankNumber:
		return f.CreditCardNumber()
	default:
		return "***"
	}
}

// Name returns a full personal name
func (f *Faker) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locale == LocaleZhCN {
		return f.pick(zhSurnames) + f.pick(zhGivenNames)
	}
	return f.pick(enFirstNames) + " " + f.pick(enLastNames)
}

// PhoneNumber returns a phone number in the locale's common format
func (f *Faker) PhoneNumber() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locale == LocaleZhCN {
		return f.pick(zhMobilePrefixes) + f.digits(8)
	}
	area := 200 + f.rng.IntN(800)
	exchange := 200 + f.rng.IntN(800)
	switch f.rng.IntN(3) {
	case 0:
		return fmt.Sprintf("(%03d)%03d-%s", area, exchange, f.digits(4))
	case 1:
		return fmt.Sprintf("%03d-%03d-%s", area, exchange, f.digits(4))
	default:
		return fmt.Sprintf("%03d.%03d.%s", area, exchange, f.digits(4))
	}
}

// Location returns province+city (zh_CN) or "City, State" (en_US)
func (f *Faker) Location() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locale == LocaleZhCN {
		return f.pick(zhProvinces) + f.pick(zhCities) + "市"
	}
	return f.pick(enCities) + ", " + f.pick(enStates)
}

// SafeEmail returns an address on a reserved example domain
func (f *Faker) SafeEmail() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := strings.ToLower(f.pick(enFirstNames))
	switch f.rng.IntN(3) {
	case 0:
		user += "." + strings.ToLower(f.pick(enLastNames))
	case 1:
		user += f.digits(2)
	}
	return user + "@" + f.pick(safeEmailDomains)
}

// PastDate returns a date within the last 30 days formatted YYYY-MM-DD
func (f *Faker) PastDate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	days := 1 + f.rng.IntN(30)
	return f.now().AddDate(0, 0, -days).Format("2006-01-02")
}

// CreditCardNumber returns a 16 digit Luhn-valid card number
func (f *Faker) CreditCardNumber() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := f.pick(cardPrefixes)
	payload := prefix + f.digits(15-len(prefix))
	return payload + string(rune('0'+luhnCheckDigit(payload)))
}

func (f *Faker) pick(values []string) string {
	return values[f.rng.IntN(len(values))]
}

func (f *Faker) digits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + f.rng.IntN(10))
	}
	return string(b)
}

// luhnCheckDigit computes the digit that makes payload+digit Luhn-valid
func luhnCheckDigit(payload string) int {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		digit := int(payload[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return (10 - sum%10) % 10
}

var (
	zhSurnames = []string{
		"王", "李", "张", "刘", "陈", "杨", "黄", "赵", "吴", "周",
		"徐", "孙", "马", "朱", "胡", "郭", "何", "高", "林", "罗",
	}
	zhGivenNames = []string{
		"伟", "芳", "娜", "秀英", "敏", "静", "丽", "强", "磊", "军",
		"洋", "勇", "艳", "杰", "娟", "涛", "明", "超", "秀兰", "霞",
	}
	zhMobilePrefixes = []string{
		"130", "131", "132", "133", "135", "136", "137", "138", "139", "150",
		"151", "152", "153", "155", "156", "157", "158", "159", "176", "177",
		"180", "181", "182", "185", "186", "187", "188", "189",
	}
	zhProvinces = []string{
		"河北省", "山西省", "辽宁省", "吉林省", "黑龙江省", "江苏省", "浙江省",
		"安徽省", "福建省", "江西省", "山东省", "河南省", "湖北省", "湖南省",
		"广东省", "海南省", "四川省", "贵州省", "云南省", "陕西省", "甘肃省",
	}
	zhCities = []string{
		"石家庄", "太原", "沈阳", "长春", "哈尔滨", "南京", "杭州", "合肥",
		"福州", "南昌", "济南", "郑州", "武汉", "长沙", "广州", "海口",
		"成都", "贵阳", "昆明", "西安", "兰州",
	}
	enFirstNames = []string{
		"James", "Mary", "John", "Patricia", "Robert", "Jennifer", "Michael",
		"Linda", "William", "Elizabeth", "David", "Barbara", "Richard", "Susan",
	}
	enLastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Wilson", "Anderson", "Taylor", "Moore",
	}
	enCities = []string{
		"Springfield", "Riverside", "Franklin", "Greenville", "Bristol",
		"Clinton", "Fairview", "Salem", "Madison", "Georgetown",
	}
	enStates = []string{
		"California", "Texas", "Florida", "New York", "Ohio", "Georgia",
		"Michigan", "Virginia", "Washington", "Oregon",
	}
	safeEmailDomains = []string{"example.com", "example.net", "example.org"}
	cardPrefixes     = []string{"4", "51", "52", "53", "54", "55", "6011"}
)
