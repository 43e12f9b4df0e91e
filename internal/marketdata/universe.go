package marketdata

import "github.com/wonny/tradepilot/internal/contracts"

// Demo universe served by the mock provider and listed by /api/market

var stockUniverse = []contracts.StockInfo{
	{Code: "600519", Name: "贵州茅台"},
	{Code: "000858", Name: "五粮液"},
	{Code: "601318", Name: "中国平安"},
	{Code: "300750", Name: "宁德时代"},
	{Code: "688111", Name: "金山办公"},
	{Code: "603501", Name: "韦尔股份"},
	{Code: "002415", Name: "海康威视"},
	{Code: "300033", Name: "同花顺"},
	{Code: "600570", Name: "恒生电子"},
	{Code: "300244", Name: "迪安诊断"},
}

var indexUniverse = []contracts.StockInfo{
	{Code: "000001", Name: "上证指数"},
	{Code: "399001", Name: "深证成指"},
	{Code: "399006", Name: "创业板指"},
	{Code: "000688", Name: "科创50"},
}

var indexBase = map[string]float64{
	"000001": 3200,
	"399001": 10500,
	"399006": 2200,
	"000688": 1000,
}

// DefaultETFCodes are the broad-market ETFs whose flows feed sentiment
var DefaultETFCodes = []string{"510050", "510300", "510500", "512100"}

var sectorUniverse = []string{"AI应用", "金融科技", "光伏", "半导体", "消费", "医药", "新能源", "网络安全", "数据要素", "白酒"}

// Stocks lists the demo stock universe
func Stocks() []contracts.StockInfo {
	return append([]contracts.StockInfo(nil), stockUniverse...)
}

// Indices lists the demo index universe
func Indices() []contracts.StockInfo {
	return append([]contracts.StockInfo(nil), indexUniverse...)
}

// Sectors lists the demo sector names
func Sectors() []string {
	return append([]string(nil), sectorUniverse...)
}

// StockName resolves a demo stock code; ok is false for unknown codes
func StockName(code string) (string, bool) {
	for _, s := range stockUniverse {
		if s.Code == code {
			return s.Name, true
		}
	}
	return "", false
}
