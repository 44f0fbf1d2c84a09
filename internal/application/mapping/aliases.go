package mapping

// Alias tables for the upstream's heterogeneous JSON shapes. Each logical
// field lists every key spelling observed upstream, consulted in priority
// order; adding a variant is a one-line edit here, never a code branch.
// Entries may use dotted paths to reach nested objects.

var orderAliases = map[string][]string{
	"external_line_id": {"orderItemId", "order_item_id", "subOrderId", "sub_order_id", "skuOrderId"},
	"order_number":     {"orderSn", "order_sn", "orderNo", "order_no", "orderNumber"},
	"parent_group_id":  {"parentOrderSn", "parent_order_sn", "parentOrderNo", "orderGroupId", "packageGroupId"},
	"marketplace_sku":  {"skuId", "sku_id", "platformSkuId", "productSkuId"},
	"sku_code":         {"skuCode", "sku_code", "outSkuId", "sellerSku", "skuSn"},
	"spu_id":           {"spuId", "spu_id", "productId", "product_id", "goodsId"},
	"quantity":         {"quantity", "itemNum", "item_num", "num", "goodsCount"},
	"unit_price":       {"unitPrice", "unit_price", "price", "skuPrice"},
	"currency":         {"currency", "currencyCode", "currency_code"},
	"status":           {"orderStatus", "order_status", "status", "orderState"},
	"order_time":       {"orderTime", "order_time", "createTime", "create_time", "createdAt"},
	"shipping_time":    {"shippingTime", "shipping_time", "shipTime", "ship_time", "sendTime", "logistics.shipTime"},
	"delivery_time":    {"deliveryTime", "delivery_time", "receiveTime", "receive_time", "finishTime", "logistics.receiveTime"},
	"package_id":       {"packageId", "package_id", "packageSn", "package_sn", "logistics.packageId"},
}

var productAliases = map[string][]string{
	"external_product_id": {"skuId", "sku_id", "platformSkuId", "productSkuId"},
	"sku_code":            {"skuCode", "sku_code", "outSkuId", "sellerSku", "skuSn"},
	"spu_id":              {"spuId", "spu_id", "productId", "product_id", "goodsId"},
	"skc_id":              {"skcId", "skc_id"},
	"unit_price":          {"declaredPrice", "declared_price", "salePrice", "sale_price", "price"},
	"supply_price":        {"supplyPrice", "supply_price", "costPrice", "cost_price", "supplierPrice"},
	"currency":            {"currency", "currencyCode", "currency_code"},
	"is_active":           {"isActive", "is_active", "onSale", "on_sale", "status"},
}
