package catalog

import "github.com/HectorPOsuna/escaner-red/internal/model/inventory"

// portCategories IANA 导入时的端口分类
var portCategories = map[int]inventory.ProtocolCategory{
	21: inventory.CategoryInsecure, 23: inventory.CategoryInsecure, 80: inventory.CategoryInsecure,
	135: inventory.CategoryInsecure, 139: inventory.CategoryInsecure, 445: inventory.CategoryInsecure,

	22: inventory.CategorySecure, 443: inventory.CategorySecure, 465: inventory.CategorySecure,
	993: inventory.CategorySecure, 995: inventory.CategorySecure,

	53: inventory.CategoryEssential, 67: inventory.CategoryEssential, 68: inventory.CategoryEssential,
	123: inventory.CategoryEssential, 161: inventory.CategoryEssential, 162: inventory.CategoryEssential,

	25: inventory.CategoryMail, 110: inventory.CategoryMail, 143: inventory.CategoryMail, 587: inventory.CategoryMail,

	1433: inventory.CategoryDatabase, 1521: inventory.CategoryDatabase, 3306: inventory.CategoryDatabase,
	5432: inventory.CategoryDatabase, 6379: inventory.CategoryDatabase, 27017: inventory.CategoryDatabase,

	3389: inventory.CategoryManagement, 5900: inventory.CategoryManagement, 5985: inventory.CategoryManagement,
	5986: inventory.CategoryManagement, 9090: inventory.CategoryManagement,

	8000: inventory.CategoryWeb, 8080: inventory.CategoryWeb, 8443: inventory.CategoryWeb,
}

// CategoryForPort 返回端口对应的分类，未列出的端口为 otro
func CategoryForPort(port int) inventory.ProtocolCategory {
	if c, ok := portCategories[port]; ok {
		return c
	}
	return inventory.CategoryOther
}
