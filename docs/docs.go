// Package docs регистрирует описание HTTP API для /swagger. Обновляется командой swag init.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Каталог товаров",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/http.ProductResponse"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Добавление товара",
                "parameters": [{"description": "Товар", "name": "product", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.CreateProductRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.ProductResponse"}},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Карточка товара",
                "parameters": [{"type": "integer", "description": "ID товара", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ProductResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/products/{id}/price": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Изменение цены",
                "parameters": [
                    {"type": "integer", "description": "ID товара", "name": "id", "in": "path", "required": true},
                    {"description": "Новая цена", "name": "price", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.UpdatePriceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ProductResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/cart/items": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Добавление товара в корзину",
                "parameters": [{"description": "Позиция", "name": "item", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.AddItemRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.CartResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Товар не найден", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/cart": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Активная корзина",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.CartResponse"}},
                    "404": {"description": "Нет активной корзины", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/checkout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["checkout"],
                "summary": "Оформление заказа",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.OrderResponse"}},
                    "409": {"description": "Корзина пуста или не хватает товара", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Временная ошибка, можно повторить", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Заказы пользователя",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/http.OrderResponse"}}}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Заказ",
                "parameters": [{"type": "integer", "description": "ID заказа", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.OrderResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/orders/{id}/receipt": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Ссылка на чек",
                "parameters": [{"type": "integer", "description": "ID заказа", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ReceiptResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "product_id": {"type": "integer"}}
        },
        "http.CreateProductRequest": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "description": {"type": "string"}, "price": {"type": "string", "example": "599.99"}, "stock": {"type": "integer"}}
        },
        "http.UpdatePriceRequest": {
            "type": "object",
            "properties": {"price": {"type": "string", "example": "649.00"}}
        },
        "http.AddItemRequest": {
            "type": "object",
            "properties": {"product_id": {"type": "integer"}, "quantity": {"type": "integer"}}
        },
        "http.ProductResponse": {
            "type": "object",
            "properties": {"id": {"type": "integer"}, "name": {"type": "string"}, "description": {"type": "string"}, "price": {"type": "string"}, "stock": {"type": "integer"}}
        },
        "http.CartLineResponse": {
            "type": "object",
            "properties": {"product_id": {"type": "integer"}, "name": {"type": "string"}, "quantity": {"type": "integer"}, "price": {"type": "string"}, "stock_warning": {"type": "boolean"}}
        },
        "http.CartResponse": {
            "type": "object",
            "properties": {"cart_id": {"type": "integer"}, "lines": {"type": "array", "items": {"$ref": "#/definitions/http.CartLineResponse"}}}
        },
        "http.OrderLineResponse": {
            "type": "object",
            "properties": {"product_id": {"type": "integer"}, "name": {"type": "string"}, "quantity": {"type": "integer"}, "price": {"type": "string"}}
        },
        "http.OrderResponse": {
            "type": "object",
            "properties": {"order_id": {"type": "integer"}, "created_at": {"type": "string"}, "lines": {"type": "array", "items": {"$ref": "#/definitions/http.OrderLineResponse"}}, "total": {"type": "string"}}
        },
        "http.ReceiptResponse": {
            "type": "object",
            "properties": {"url": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Checkout API",
	Description:      "Каталог, корзины и оформление заказов.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
